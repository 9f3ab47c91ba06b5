package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vanshika/peerpay/internal/domain"
	"github.com/vanshika/peerpay/internal/ledger"
)

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger    *slog.Logger
	users     *ledger.UserService
	transfers *ledger.TransferService
	bonus     *ledger.BonusService
	risk      *ledger.RiskService
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, users *ledger.UserService, transfers *ledger.TransferService, bonus *ledger.BonusService, risk *ledger.RiskService) *APIHandlers {
	return &APIHandlers{
		logger:    logger,
		users:     users,
		transfers: transfers,
		bonus:     bonus,
		risk:      risk,
	}
}

func (h *APIHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 0)

	users, err := h.users.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list users", "error", err)
		writeServiceError(w, err, "failed to list users")
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, toUserResponse(user))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) createUser(w http.ResponseWriter, r *http.Request) {
	var payload createUserRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Register(r.Context(), payload.Name, payload.InitialBalance)
	if err != nil {
		h.logger.Error("failed to create user", "error", err)
		writeServiceError(w, err, "failed to create user")
		return
	}

	respondJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *APIHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "failed to fetch user")
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *APIHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	if err := h.users.DeleteByID(r.Context(), userID); err != nil {
		h.logger.Error("failed to delete user", "error", err, "userId", userID)
		writeServiceError(w, err, "failed to delete user")
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{Status: "deleted", ID: userID})
}

func (h *APIHandlers) createTransfer(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var payload transferRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sender, err := h.users.GetBySubject(r.Context(), subject)
	if err != nil {
		writeServiceError(w, err, "failed to resolve sender")
		return
	}

	result, err := h.transfers.Transfer(r.Context(), ledger.TransferInput{
		SenderID:    sender.ID,
		ReceiverID:  payload.ReceiverID,
		Amount:      payload.Amount,
		Category:    payload.Category,
		Description: payload.Description,
	})
	if err != nil {
		transfersTotal.WithLabelValues("rejected").Inc()
		h.logger.Warn("transfer rejected", "error", err, "senderId", sender.ID)
		writeServiceError(w, err, "failed to execute transfer")
		return
	}
	transfersTotal.WithLabelValues("completed").Inc()

	respondJSON(w, http.StatusCreated, transferResponse{
		Transaction: toTransactionResponse(result.Transaction),
		Sender:      toUserResponse(result.Sender),
		Receiver:    toUserResponse(result.Receiver),
	})
}

func (h *APIHandlers) userHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	items, err := h.users.History(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "failed to fetch transaction history")
		return
	}

	resp := make([]feedItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, feedItemResponse{
			Role:         string(item.Role),
			Transaction:  toTransactionResponse(item.Transaction),
			Counterparty: toUserRefResponse(item.Counterparty),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) getMe(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.Ensure(r.Context(), subject, defaultNameFromContext(r.Context()))
	if err != nil {
		h.logger.Error("failed to ensure user", "error", err)
		writeServiceError(w, err, "failed to load profile")
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *APIHandlers) patchMe(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var payload patchMeRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Name == nil && payload.ProfileImage == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), subject, payload.Name, payload.ProfileImage)
	if err != nil {
		h.logger.Error("failed to update profile", "error", err)
		writeServiceError(w, err, "failed to update profile")
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *APIHandlers) deleteMe(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.users.Delete(r.Context(), subject); err != nil {
		h.logger.Error("failed to delete account", "error", err)
		writeServiceError(w, err, "failed to delete account")
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{Status: "deleted"})
}

func (h *APIHandlers) recalculateRisk(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.GetBySubject(r.Context(), subject)
	if err != nil {
		writeServiceError(w, err, "failed to resolve user")
		return
	}

	level, err := h.risk.RecomputeAndPersist(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to recompute risk score", "error", err, "userId", user.ID)
		writeServiceError(w, err, "failed to recompute risk score")
		return
	}
	riskRecomputationsTotal.Inc()

	respondJSON(w, http.StatusOK, riskResponse{RiskScore: string(level)})
}

func (h *APIHandlers) bonusStatus(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.GetBySubject(r.Context(), subject)
	if err != nil {
		writeServiceError(w, err, "failed to resolve user")
		return
	}

	eligible, err := h.bonus.Eligible(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to check bonus eligibility", "error", err, "userId", user.ID)
		writeServiceError(w, err, "failed to check bonus eligibility")
		return
	}

	respondJSON(w, http.StatusOK, bonusStatusResponse{
		Eligible:    eligible,
		LastClaimAt: formatTimePtr(user.LastBonusClaimAt),
	})
}

func (h *APIHandlers) claimBonus(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.GetBySubject(r.Context(), subject)
	if err != nil {
		writeServiceError(w, err, "failed to resolve user")
		return
	}

	result, err := h.bonus.Claim(r.Context(), user.ID)
	if err != nil {
		bonusClaimsTotal.WithLabelValues("failed").Inc()
		h.logger.Error("failed to claim bonus", "error", err, "userId", user.ID)
		writeServiceError(w, err, "failed to claim bonus")
		return
	}
	if !result.Claimed {
		// Not eligible yet is an expected outcome, not a fault.
		bonusClaimsTotal.WithLabelValues("cooldown").Inc()
		respondJSON(w, http.StatusOK, claimBonusResponse{Claimed: false})
		return
	}
	bonusClaimsTotal.WithLabelValues("claimed").Inc()

	claimedUser := toUserResponse(result.User)
	claimedTx := toTransactionResponse(result.Transaction)
	respondJSON(w, http.StatusCreated, claimBonusResponse{
		Claimed:     true,
		User:        &claimedUser,
		Transaction: &claimedTx,
	})
}

// --- Request & Response DTOs ---

type createUserRequest struct {
	Name           string  `json:"name"`
	InitialBalance float64 `json:"initialBalance"`
}

type transferRequest struct {
	ReceiverID  string  `json:"receiverId"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
}

type patchMeRequest struct {
	Name         *string `json:"name"`
	ProfileImage *string `json:"profileImage"`
}

type userResponse struct {
	UserID       string  `json:"userId"`
	Name         string  `json:"name"`
	Balance      float64 `json:"balance"`
	RiskScore    string  `json:"riskScore"`
	ProfileImage string  `json:"profileImage,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	LastClaimAt  string  `json:"lastBonusClaimAt,omitempty"`
}

type userRefResponse struct {
	UserID       string `json:"userId"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage,omitempty"`
}

type transactionResponse struct {
	TransactionID string  `json:"transactionId"`
	Amount        float64 `json:"amount"`
	Category      string  `json:"category"`
	Description   string  `json:"description,omitempty"`
	Date          string  `json:"date"`
}

type feedItemResponse struct {
	Role         string              `json:"role"`
	Transaction  transactionResponse `json:"transaction"`
	Counterparty userRefResponse     `json:"counterparty"`
}

type transferResponse struct {
	Transaction transactionResponse `json:"transaction"`
	Sender      userResponse        `json:"sender"`
	Receiver    userResponse        `json:"receiver"`
}

type bonusStatusResponse struct {
	Eligible    bool   `json:"eligible"`
	LastClaimAt string `json:"lastClaimAt,omitempty"`
}

type claimBonusResponse struct {
	Claimed     bool                 `json:"claimed"`
	User        *userResponse        `json:"user,omitempty"`
	Transaction *transactionResponse `json:"transaction,omitempty"`
}

type riskResponse struct {
	RiskScore string `json:"riskScore"`
}

type statusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
}

// --- Helpers ---

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		UserID:       user.ID,
		Name:         user.Name,
		Balance:      user.Balance,
		RiskScore:    string(user.RiskScore),
		ProfileImage: user.ProfileImage,
		CreatedAt:    formatTime(user.CreatedAt),
		LastClaimAt:  formatTimePtr(user.LastBonusClaimAt),
	}
}

func toUserRefResponse(ref domain.UserRef) userRefResponse {
	return userRefResponse{
		UserID:       ref.ID,
		Name:         ref.Name,
		ProfileImage: ref.ProfileImage,
	}
}

func toTransactionResponse(tx domain.Transaction) transactionResponse {
	return transactionResponse{
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Category:      tx.Category,
		Description:   tx.Description,
		Date:          formatTime(tx.Date),
	}
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidOperation):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, "insufficient funds")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}
