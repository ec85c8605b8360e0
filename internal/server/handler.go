package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/Decentr-net/sharehub/internal/api"
	"github.com/Decentr-net/sharehub/internal/ledger"
	mm "github.com/Decentr-net/sharehub/internal/middleware"
	"github.com/Decentr-net/sharehub/internal/service"
)

var errInvalidRequest = errors.New("invalid request")

func (s server) register(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /users/register Users Register
	//
	// Creates password user and returns session.
	//
	// ---
	// parameters:
	// - name: request
	//   in: body
	//   required: true
	//   schema:
	//     "$ref": "#/definitions/CredentialsRequest"
	// responses:
	//   '201':
	//     description: session
	//     schema:
	//       "$ref": "#/definitions/AuthResponse"
	//   '400':
	//     description: bad request
	//   '409':
	//     description: username is already taken

	var req CredentialsRequest
	if err := decode(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := s.s.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusCreated, newAuthResponse(session))
}

func (s server) login(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /auth/login Auth Login
	//
	// Authenticates user by username and password.
	//
	// ---
	// parameters:
	// - name: request
	//   in: body
	//   required: true
	//   schema:
	//     "$ref": "#/definitions/CredentialsRequest"
	// responses:
	//   '200':
	//     description: session
	//     schema:
	//       "$ref": "#/definitions/AuthResponse"
	//   '401':
	//     description: invalid credentials

	var req CredentialsRequest
	if err := decode(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := s.s.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, newAuthResponse(session))
}

func (s server) suiLogin(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /auth/sui-login Auth SuiLogin
	//
	// Authenticates user by Sui wallet personal message signature. User is created on first login.
	//
	// ---
	// parameters:
	// - name: request
	//   in: body
	//   required: true
	//   schema:
	//     "$ref": "#/definitions/SuiLoginRequest"
	// responses:
	//   '200':
	//     description: session
	//     schema:
	//       "$ref": "#/definitions/AuthResponse"
	//   '401':
	//     description: invalid signature

	var req SuiLoginRequest
	if err := decode(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Address == "" || req.Message == "" || req.Signature == "" {
		api.WriteError(w, http.StatusBadRequest, "address, message and signature are required")
		return
	}

	session, err := s.s.WalletLogin(r.Context(), req.Address, req.Message, req.Signature)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, newAuthResponse(session))
}

func (s server) getProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.s.GetProfile(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, newUser(u))
}

func (s server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := decode(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := s.s.UpdateProfile(r.Context(), identity(r).UserID, service.UpdateProfileParams{
		Avatar: req.Avatar,
		Bio:    req.Bio,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, newUser(u))
}

func (s server) createShare(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /shares Shares CreateShare
	//
	// Records share on the ledger and stores it.
	//
	// ---
	// parameters:
	// - name: request
	//   in: body
	//   required: true
	//   schema:
	//     "$ref": "#/definitions/CreateShareRequest"
	// responses:
	//   '201':
	//     description: created share
	//     schema:
	//       "$ref": "#/definitions/Share"
	//   '400':
	//     description: bad request
	//   '500':
	//     description: ledger or internal error

	var req CreateShareRequest
	if err := decode(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sh, err := s.s.CreateShare(r.Context(), identity(r).UserID, service.CreateShareParams{
		Title:   req.Title,
		Content: req.Content,
		Image:   req.Image,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusCreated, newShare(sh))
}

func (s server) listShares(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /shares Shares ListShares
	//
	// Returns page of shares.
	//
	// ---
	// parameters:
	// - name: page
	//   in: query
	//   required: false
	//   default: 1
	// - name: limit
	//   in: query
	//   required: false
	//   default: 10
	//   maximum: 100
	// - name: sort
	//   in: query
	//   required: false
	//   default: latest
	//   type: string
	//   enum: [latest, popular, comments]
	// - name: userId
	//   description: filters shares by owner
	//   in: query
	//   required: false
	// - name: search
	//   description: case-insensitive substring of title or content
	//   in: query
	//   required: false
	// responses:
	//   '200':
	//     description: shares
	//     schema:
	//       "$ref": "#/definitions/ListSharesResponse"
	//   '400':
	//     description: bad request

	p, err := extractListParamsFromQuery(r.URL.Query())
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.s.ListShares(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, newListSharesResponse(page))
}

func (s server) getShare(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	d, err := s.s.GetShare(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, newShareDetails(d))
}

func (s server) updateShare(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req UpdateShareRequest
	if err := decode(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sh, err := s.s.UpdateShare(r.Context(), identity(r).UserID, id, service.UpdateShareParams{
		Title:   req.Title,
		Content: req.Content,
		Image:   req.Image,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, newShare(sh))
}

func (s server) deleteShare(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := s.s.DeleteShare(r.Context(), identity(r).UserID, id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s server) like(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := s.s.Like(r.Context(), identity(r).UserID, id); err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, LikedResponse{Liked: true})
}

func (s server) unlike(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := s.s.Unlike(r.Context(), identity(r).UserID, id); err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, LikedResponse{Liked: false})
}

func (s server) isLiked(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	liked, err := s.s.IsLiked(r.Context(), identity(r).UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, LikedResponse{Liked: liked})
}

func (s server) createComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req CreateCommentRequest
	if err := decode(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := s.s.CreateComment(r.Context(), identity(r).UserID, id, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusCreated, newComment(c))
}

func (s server) listComments(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	list, err := s.s.ListComments(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, newComments(list))
}

func (s server) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := s.s.DeleteComment(r.Context(), identity(r).UserID, id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s server) listNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := s.s.ListNotifications(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, newNotifications(list))
}

func (s server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := s.s.MarkNotificationRead(r.Context(), identity(r).UserID, id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s server) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	c, err := s.s.MarkAllNotificationsRead(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, MarkAllReadResponse{Updated: c})
}

// writeError maps service and ledger errors to http responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, ledger.ErrValidation):
		api.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidSignature):
		api.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		api.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		api.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUsernameTaken):
		api.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrEncoding),
		errors.Is(err, ledger.ErrLedgerWriteFailed):
		api.GetLogger(r.Context()).WithError(err).Error("ledger write failed")
		api.WriteError(w, http.StatusInternalServerError, ledgerMessage(err))
	default:
		api.WriteInternalErrorf(r.Context(), w, "%s %s: %s", r.Method, r.URL.Path, err.Error())
	}
}

func ledgerMessage(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "ledger: insufficient funds"
	case errors.Is(err, ledger.ErrEncoding):
		return "ledger: invalid encoding"
	default:
		return "ledger: write failed"
	}
}

func identity(r *http.Request) *service.Identity {
	i, ok := mm.GetIdentity(r.Context())
	if !ok {
		// routes are registered with AuthRequired
		panic("identity is missing in request context")
	}
	return i
}

func idParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		api.WriteError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}

	return id, true
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %s", errInvalidRequest, err.Error())
	}

	return nil
}

func extractListParamsFromQuery(q url.Values) (service.ListSharesParams, error) {
	var (
		p   service.ListSharesParams
		err error
	)

	if v := q.Get("page"); v != "" {
		if p.Page, err = strconv.Atoi(v); err != nil {
			return p, fmt.Errorf("%w: invalid page", errInvalidRequest)
		}
	}

	if v := q.Get("limit"); v != "" {
		if p.Limit, err = strconv.Atoi(v); err != nil {
			return p, fmt.Errorf("%w: invalid limit", errInvalidRequest)
		}
	}

	if v := q.Get("userId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return p, fmt.Errorf("%w: invalid userId", errInvalidRequest)
		}
		p.UserID = &id
	}

	if v := q.Get("search"); v != "" {
		p.Search = &v
	}

	p.SortBy = q.Get("sort")
	if p.SortBy == "" {
		p.SortBy = q.Get("sortBy")
	}

	return p, nil
}
