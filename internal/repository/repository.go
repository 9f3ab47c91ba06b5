package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vanshika/peerpay/internal/domain"
	"github.com/vanshika/peerpay/internal/graph"
)

// Repository encapsulates graph persistence operations for the ledger.
// Every mutating statement is a single guarded Cypher statement executed in
// one database transaction: when a guard fails the statement matches
// nothing, returns zero records, and mutates nothing. Guarded statements
// take the guarded node's write lock with a self-assignment before the
// guard runs; plain guard reads are not lock-protected at read-committed
// isolation, so concurrent writers would otherwise both pass the guard.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// CreateUserParams describes a direct registration.
type CreateUserParams struct {
	ID        string
	Name      string
	Balance   float64
	CreatedAt time.Time
}

// EnsureUserParams describes provisioning-on-demand keyed on the external
// identity subject. ID and Now are only applied when the user is created.
type EnsureUserParams struct {
	ID      string
	Subject string
	Name    string
	Now     time.Time
}

// TransferParams describes one atomic balance transfer.
type TransferParams struct {
	TransactionID string
	SenderID      string
	ReceiverID    string
	Amount        float64
	Category      string
	Description   string
	Date          time.Time
}

// TransferResult carries the post-transfer parties and the created record.
type TransferResult struct {
	Sender      domain.User
	Receiver    domain.User
	Transaction domain.Transaction
}

// BonusClaimParams describes a cooldown-gated bonus credit.
type BonusClaimParams struct {
	TransactionID string
	UserID        string
	ReserveID     string
	Amount        float64
	Cooldown      time.Duration
	Now           time.Time
}

// SignupBonusParams describes the one-time signup grant.
type SignupBonusParams struct {
	TransactionID string
	UserID        string
	ReserveID     string
	Amount        float64
	Now           time.Time
}

// EnsureConstraints creates the uniqueness constraints the ledger relies
// on. Provisioning merges on the identity subject, which is only race-safe
// once the subject constraint exists.
func (r *Repository) EnsureConstraints(ctx context.Context) error {
	for _, cypher := range []string{userIDConstraintCypher, userSubjectConstraintCypher} {
		if _, err := r.client.ExecuteWrite(ctx, cypher, nil); err != nil {
			return fmt.Errorf("ensure constraints: %w", err)
		}
	}
	return nil
}

// CreateUser creates a standalone user node.
func (r *Repository) CreateUser(ctx context.Context, p CreateUserParams) (domain.User, error) {
	if p.ID == "" {
		return domain.User{}, errors.New("user id is required")
	}

	res, err := r.client.ExecuteWrite(ctx, createUserCypher, map[string]any{
		"id":      p.ID,
		"name":    p.Name,
		"balance": p.Balance,
		"now":     formatTime(p.CreatedAt),
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("create user %s: %w", p.ID, err)
	}
	if len(res.Records) == 0 {
		return domain.User{}, fmt.Errorf("create user %s: no record returned", p.ID)
	}
	return decodeUser(res.Records[0]["user"]), nil
}

// EnsureUserBySubject provisions a user on first contact with the given
// external identity subject. The created flag reports whether this call
// created the node.
func (r *Repository) EnsureUserBySubject(ctx context.Context, p EnsureUserParams) (domain.User, bool, error) {
	if p.Subject == "" {
		return domain.User{}, false, errors.New("subject is required")
	}

	res, err := r.client.ExecuteWrite(ctx, ensureUserCypher, map[string]any{
		"id":      p.ID,
		"subject": p.Subject,
		"name":    p.Name,
		"now":     formatTime(p.Now),
	})
	if err != nil {
		return domain.User{}, false, fmt.Errorf("ensure user for subject: %w", err)
	}
	if len(res.Records) == 0 {
		return domain.User{}, false, errors.New("ensure user: no record returned")
	}

	record := res.Records[0]
	created, _ := record["created"].(bool)
	return decodeUser(record["user"]), created, nil
}

// EnsureReserve provisions the distinguished reserve account if absent.
// The reserve funds incentive credits and may go negative without bound.
func (r *Repository) EnsureReserve(ctx context.Context, id, name string, now time.Time) (domain.User, error) {
	res, err := r.client.ExecuteWrite(ctx, ensureReserveCypher, map[string]any{
		"id":   id,
		"name": name,
		"now":  formatTime(now),
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("ensure reserve account: %w", err)
	}
	if len(res.Records) == 0 {
		return domain.User{}, errors.New("ensure reserve account: no record returned")
	}
	return decodeUser(res.Records[0]["user"]), nil
}

// GetUser fetches one user by internal id.
func (r *Repository) GetUser(ctx context.Context, id string) (domain.User, error) {
	return r.getUserWith(ctx, getUserCypher, map[string]any{"id": id})
}

// GetUserBySubject fetches one user by external identity subject.
func (r *Repository) GetUserBySubject(ctx context.Context, subject string) (domain.User, error) {
	return r.getUserWith(ctx, getUserBySubjectCypher, map[string]any{"subject": subject})
}

func (r *Repository) getUserWith(ctx context.Context, cypher string, params map[string]any) (domain.User, error) {
	res, err := r.client.ExecuteRead(ctx, cypher, params)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if len(res.Records) == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	return decodeUser(res.Records[0]["user"]), nil
}

// ListUsers returns the most recently created users, reserve excluded.
func (r *Repository) ListUsers(ctx context.Context, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 50
	}

	res, err := r.client.ExecuteRead(ctx, listUsersCypher, map[string]any{
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]domain.User, 0, len(res.Records))
	for _, record := range res.Records {
		users = append(users, decodeUser(record["user"]))
	}
	return users, nil
}

// DeleteUser removes the user node and all its relationships. Transaction
// nodes referencing the user are retained; they simply drop out of any
// remaining feed once their endpoint is gone.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.client.ExecuteWrite(ctx, deleteUserCypher, map[string]any{
		"id": id,
	})
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	if len(res.Records) == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateProfile patches name and/or profile image, leaving every other
// attribute untouched. Nil fields are not modified.
func (r *Repository) UpdateProfile(ctx context.Context, id string, name, img *string) (domain.User, error) {
	res, err := r.client.ExecuteWrite(ctx, patchUserCypher, map[string]any{
		"id":   id,
		"name": stringPtrParam(name),
		"img":  stringPtrParam(img),
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("patch user %s: %w", id, err)
	}
	if len(res.Records) == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	return decodeUser(res.Records[0]["user"]), nil
}

// UpdateRiskScore persists the derived risk classification. It is
// idempotent and never alters any other user attribute.
func (r *Repository) UpdateRiskScore(ctx context.Context, id string, score domain.RiskLevel) error {
	res, err := r.client.ExecuteWrite(ctx, updateRiskScoreCypher, map[string]any{
		"id":        id,
		"riskScore": string(score),
	})
	if err != nil {
		return fmt.Errorf("update risk score for %s: %w", id, err)
	}
	if len(res.Records) == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Transfer atomically creates the transaction record, links both parties
// and moves the balance. The statement's guard rejects senders that cannot
// cover the amount unless they are the reserve; a failed guard leaves the
// store untouched, and the failure is then classified with a read.
func (r *Repository) Transfer(ctx context.Context, p TransferParams) (TransferResult, error) {
	res, err := r.client.ExecuteWrite(ctx, transferCypher, map[string]any{
		"transactionId": p.TransactionID,
		"senderId":      p.SenderID,
		"receiverId":    p.ReceiverID,
		"amount":        p.Amount,
		"category":      p.Category,
		"description":   p.Description,
		"date":          formatTime(p.Date),
	})
	if err != nil {
		return TransferResult{}, fmt.Errorf("transfer %s: %w", p.TransactionID, err)
	}
	if len(res.Records) == 0 {
		return TransferResult{}, r.classifyTransferFailure(ctx, p.SenderID, p.ReceiverID)
	}

	record := res.Records[0]
	return TransferResult{
		Sender:      decodeUser(record["sender"]),
		Receiver:    decodeUser(record["receiver"]),
		Transaction: decodeTransaction(record["transaction"]),
	}, nil
}

// classifyTransferFailure distinguishes missing parties from an
// insufficient balance after a guarded transfer matched nothing. Nothing
// was mutated, so a plain read is safe here.
func (r *Repository) classifyTransferFailure(ctx context.Context, senderID, receiverID string) error {
	res, err := r.client.ExecuteRead(ctx, transferPartiesCypher, map[string]any{
		"senderId":   senderID,
		"receiverId": receiverID,
	})
	if err != nil {
		return fmt.Errorf("classify transfer failure: %w", err)
	}
	if len(res.Records) == 0 {
		return domain.ErrNotFound
	}

	record := res.Records[0]
	senderExists, _ := record["senderExists"].(bool)
	receiverExists, _ := record["receiverExists"].(bool)
	if !senderExists || !receiverExists {
		return domain.ErrNotFound
	}
	return domain.ErrInsufficientFunds
}

// History reconstructs the user's full chronological feed, sent and
// received merged, most recent first. An empty feed is not an error.
func (r *Repository) History(ctx context.Context, userID string) ([]domain.FeedItem, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	res, err := r.client.ExecuteRead(ctx, historyCypher, map[string]any{
		"id": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", userID, err)
	}
	if len(res.Records) == 0 {
		return nil, domain.ErrNotFound
	}

	raw, _ := res.Records[0]["items"].([]any)
	items := make([]domain.FeedItem, 0, len(raw))
	for _, entry := range raw {
		// A user with no transactions yields a single null placeholder.
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, domain.FeedItem{
			Role:         domain.FeedRole(toString(m["role"])),
			Transaction:  decodeTransaction(m["tx"]),
			Counterparty: decodeUserRef(m["counterparty"]),
		})
	}
	return items, nil
}

// ClaimBonus performs the cooldown-gated credit. The eligibility check, the
// claim timestamp and the credit commit in one statement, so concurrent
// claims produce at most one success. The claimed flag is false when the
// user exists but the cooldown has not elapsed.
func (r *Repository) ClaimBonus(ctx context.Context, p BonusClaimParams) (TransferResult, bool, error) {
	res, err := r.client.ExecuteWrite(ctx, claimBonusCypher, map[string]any{
		"transactionId":   p.TransactionID,
		"userId":          p.UserID,
		"reserveId":       p.ReserveID,
		"amount":          p.Amount,
		"cooldownSeconds": int64(p.Cooldown.Seconds()),
		"now":             formatTime(p.Now),
	})
	if err != nil {
		return TransferResult{}, false, fmt.Errorf("claim bonus for %s: %w", p.UserID, err)
	}
	if len(res.Records) == 0 {
		// The user is gone, the reserve is gone, or the cooldown gate held.
		if _, err := r.GetUser(ctx, p.UserID); err != nil {
			return TransferResult{}, false, err
		}
		if _, err := r.GetUser(ctx, p.ReserveID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return TransferResult{}, false, fmt.Errorf("claim bonus: reserve account %s is missing", p.ReserveID)
			}
			return TransferResult{}, false, err
		}
		return TransferResult{}, false, nil
	}

	record := res.Records[0]
	return TransferResult{
		Receiver:    decodeUser(record["user"]),
		Transaction: decodeTransaction(record["transaction"]),
	}, true, nil
}

// GrantSignupBonus credits the one-time signup grant. The statement guards
// on the grant marker, so repeat calls for the same user are no-ops.
func (r *Repository) GrantSignupBonus(ctx context.Context, p SignupBonusParams) (bool, error) {
	res, err := r.client.ExecuteWrite(ctx, grantSignupBonusCypher, map[string]any{
		"transactionId": p.TransactionID,
		"userId":        p.UserID,
		"reserveId":     p.ReserveID,
		"amount":        p.Amount,
		"now":           formatTime(p.Now),
	})
	if err != nil {
		return false, fmt.Errorf("grant signup bonus for %s: %w", p.UserID, err)
	}
	return len(res.Records) > 0, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func stringPtrParam(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func decodeUser(val any) domain.User {
	m, ok := val.(map[string]any)
	if !ok {
		return domain.User{}
	}
	user := domain.User{
		ID:           toString(m["id"]),
		Subject:      toString(m["subject"]),
		Name:         toString(m["name"]),
		Balance:      toFloat64(m["balance"]),
		RiskScore:    domain.ParseRiskLevel(toString(m["riskScore"])),
		ProfileImage: toString(m["img"]),
		Reserve:      toBool(m["reserve"]),
	}
	if created := toTimePtr(m["createdAt"]); created != nil {
		user.CreatedAt = *created
	}
	user.LastBonusClaimAt = toTimePtr(m["lastBonusClaimAt"])
	return user
}

func decodeUserRef(val any) domain.UserRef {
	m, ok := val.(map[string]any)
	if !ok {
		return domain.UserRef{}
	}
	return domain.UserRef{
		ID:           toString(m["id"]),
		Name:         toString(m["name"]),
		ProfileImage: toString(m["img"]),
	}
}

func decodeTransaction(val any) domain.Transaction {
	m, ok := val.(map[string]any)
	if !ok {
		return domain.Transaction{}
	}
	tx := domain.Transaction{
		ID:          toString(m["id"]),
		Amount:      toFloat64(m["amount"]),
		Category:    toString(m["category"]),
		Description: toString(m["description"]),
	}
	if date := toTimePtr(m["date"]); date != nil {
		tx.Date = *date
	}
	return tx
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toFloat64(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func toBool(val any) bool {
	b, _ := val.(bool)
	return b
}

func toTimePtr(val any) *time.Time {
	switch v := val.(type) {
	case time.Time:
		return &v
	case string:
		if v == "" {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &parsed
		}
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return &parsed
		}
	}
	return nil
}

const userIDConstraintCypher = `
CREATE CONSTRAINT user_id_unique IF NOT EXISTS
FOR (u:User) REQUIRE u.id IS UNIQUE
`

const userSubjectConstraintCypher = `
CREATE CONSTRAINT user_subject_unique IF NOT EXISTS
FOR (u:User) REQUIRE u.subject IS UNIQUE
`

const userProjection = `{
	.id, .subject, .name, .riskScore, .img,
	balance: coalesce(u.balance, 0.0),
	reserve: coalesce(u.reserve, false),
	createdAt: toString(u.createdAt),
	lastBonusClaimAt: toString(u.lastBonusClaimAt)
}`

const createUserCypher = `
CREATE (u:User {
	id: $id,
	name: $name,
	balance: $balance,
	riskScore: 'low',
	createdAt: datetime($now)
})
RETURN u ` + userProjection + ` AS user
`

const ensureUserCypher = `
MERGE (u:User {subject: $subject})
ON CREATE SET u.id = $id,
	u.name = $name,
	u.balance = 0.0,
	u.riskScore = 'low',
	u.createdAt = datetime($now)
RETURN u ` + userProjection + ` AS user,
       u.createdAt = datetime($now) AS created
`

const ensureReserveCypher = `
MERGE (u:User {reserve: true})
ON CREATE SET u.id = $id,
	u.name = $name,
	u.subject = 'reserve',
	u.balance = 0.0,
	u.riskScore = 'low',
	u.createdAt = datetime($now)
RETURN u ` + userProjection + ` AS user
`

const getUserCypher = `
MATCH (u:User {id: $id})
RETURN u ` + userProjection + ` AS user
`

const getUserBySubjectCypher = `
MATCH (u:User {subject: $subject})
RETURN u ` + userProjection + ` AS user
`

const listUsersCypher = `
MATCH (u:User)
WHERE coalesce(u.reserve, false) = false
RETURN u ` + userProjection + ` AS user
ORDER BY u.createdAt DESC
LIMIT $limit
`

const deleteUserCypher = `
MATCH (u:User {id: $id})
WITH u, u.id AS id
DETACH DELETE u
RETURN id
`

const patchUserCypher = `
MATCH (u:User {id: $id})
SET u.name = coalesce($name, u.name),
    u.img = coalesce($img, u.img)
RETURN u ` + userProjection + ` AS user
`

const updateRiskScoreCypher = `
MATCH (u:User {id: $id})
SET u.riskScore = $riskScore
RETURN u.id AS id
`

const transferCypher = `
MATCH (sender:User {id: $senderId})
MATCH (receiver:User {id: $receiverId})
SET sender.id = sender.id
WITH sender, receiver
WHERE coalesce(sender.reserve, false) OR coalesce(sender.balance, 0.0) >= $amount
CREATE (t:Transaction {
	id: $transactionId,
	amount: $amount,
	category: $category,
	description: $description,
	date: datetime($date)
})
MERGE (sender)-[:SENT]->(t)
MERGE (t)-[:RECEIVED_BY]->(receiver)
SET sender.balance = coalesce(sender.balance, 0.0) - $amount,
    receiver.balance = coalesce(receiver.balance, 0.0) + $amount
RETURN sender { .id, .name, .riskScore, .img, balance: sender.balance, createdAt: toString(sender.createdAt) } AS sender,
       receiver { .id, .name, .riskScore, .img, balance: receiver.balance, createdAt: toString(receiver.createdAt) } AS receiver,
       t { .id, .amount, .category, .description, date: toString(t.date) } AS transaction
`

const transferPartiesCypher = `
OPTIONAL MATCH (s:User {id: $senderId})
OPTIONAL MATCH (r:User {id: $receiverId})
RETURN s IS NOT NULL AS senderExists,
       r IS NOT NULL AS receiverExists
`

const historyCypher = `
MATCH (u:User {id: $id})
CALL {
	WITH u
	MATCH (u)-[:SENT]->(t:Transaction)-[:RECEIVED_BY]->(r:User)
	RETURN collect({
		role: 'sent',
		tx: t { .id, .amount, .category, .description, date: toString(t.date) },
		counterparty: r { .id, .name, .img }
	}) AS sent
}
CALL {
	WITH u
	MATCH (s:User)-[:SENT]->(t2:Transaction)-[:RECEIVED_BY]->(u)
	RETURN collect({
		role: 'received',
		tx: t2 { .id, .amount, .category, .description, date: toString(t2.date) },
		counterparty: s { .id, .name, .img }
	}) AS received
}
WITH sent + received AS allTx
UNWIND (CASE WHEN size(allTx) = 0 THEN [null] ELSE allTx END) AS item
WITH item
ORDER BY datetime(item.tx.date) DESC
RETURN collect(item) AS items
`

const claimBonusCypher = `
MATCH (u:User {id: $userId})
MATCH (reserve:User {id: $reserveId})
SET u.id = u.id
WITH u, reserve
WHERE u.lastBonusClaimAt IS NULL
   OR u.lastBonusClaimAt <= datetime($now) - duration({seconds: $cooldownSeconds})
CREATE (t:Transaction {
	id: $transactionId,
	amount: $amount,
	category: 'Bonus',
	description: 'Recurring bonus claim',
	date: datetime($now)
})
MERGE (reserve)-[:SENT]->(t)
MERGE (t)-[:RECEIVED_BY]->(u)
SET reserve.balance = coalesce(reserve.balance, 0.0) - $amount,
    u.balance = coalesce(u.balance, 0.0) + $amount,
    u.lastBonusClaimAt = datetime($now)
RETURN u ` + userProjection + ` AS user,
       t { .id, .amount, .category, .description, date: toString(t.date) } AS transaction
`

const grantSignupBonusCypher = `
MATCH (u:User {id: $userId})
MATCH (reserve:User {id: $reserveId})
SET u.id = u.id
WITH u, reserve
WHERE u.signupBonusGrantedAt IS NULL AND coalesce(u.reserve, false) = false
CREATE (t:Transaction {
	id: $transactionId,
	amount: $amount,
	category: 'Bonus',
	description: 'Signup bonus',
	date: datetime($now)
})
MERGE (reserve)-[:SENT]->(t)
MERGE (t)-[:RECEIVED_BY]->(u)
SET reserve.balance = coalesce(reserve.balance, 0.0) - $amount,
    u.balance = coalesce(u.balance, 0.0) + $amount,
    u.signupBonusGrantedAt = datetime($now)
RETURN u.id AS userId
`
