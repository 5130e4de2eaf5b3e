package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/crypto/bcrypt"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Analysis       models.Analysis `json:"analysis"`
	SpotifyResults []models.Track  `json:"spotify_results"`
	Prompt         string          `json:"prompt"`
}

type addSongRequest struct {
	SpotifyTrackID string  `json:"spotify_track_id"`
	Title          string  `json:"title"`
	Artist         string  `json:"artist"`
	SpotifyURI     string  `json:"spotify_uri"`
	PreviewURL     *string `json:"preview_url"`
	AlbumArtURL    *string `json:"album_art_url"`
}

type removeSongRequest struct {
	SpotifyTrackID string `json:"spotify_track_id"`
}

type expandRequest struct {
	Songs []models.Song `json:"songs"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON reads a size-limited JSON body into v and answers 400 itself when it cannot.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// message strips the sentinel prefix from err so the client sees only the detail.
func message(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			writeError(w, http.StatusBadRequest, "Password is too long")
			return
		}
		s.internalError(w, r, err)
		return
	}

	user := models.NewUser(req.Username, req.Email, hash)
	if err := s.deps.Users.Create(user); err != nil {
		switch {
		case errors.Is(err, shared.ErrUsernameTaken):
			writeError(w, http.StatusBadRequest, "Username already exists")
		case errors.Is(err, shared.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, "Email already exists")
		case errors.Is(err, shared.ErrValidation):
			writeError(w, http.StatusBadRequest, "All fields are required")
		default:
			s.internalError(w, r, err)
		}
		return
	}

	s.issueSession(w, r, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := s.deps.Users.GetByEmail(req.Email)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		s.internalError(w, r, err)
		return
	}
	if user == nil || !CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	s.issueSession(w, r, user)
}

func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, user *models.User) {
	token, err := s.deps.Tokens.Issue(user.ID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	user, err := s.deps.Users.Get(userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	if err := s.deps.Revocations.Revoke(claims.ID, claims.Subject, claims.ExpiresAt.Time); err != nil {
		s.internalError(w, r, err)
		return
	}

	if n, err := s.deps.Revocations.Purge(time.Now()); err != nil {
		s.logger.Warn("failed to purge expired revocations", "error", err)
	} else if n > 0 {
		s.logger.Debug("purged expired revocations", "count", n)
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	analysis := s.deps.Analyzer.Analyze(r.Context(), prompt)
	if analysis.Failed() {
		writeError(w, http.StatusInternalServerError, analysis.Error)
		return
	}

	results := s.deps.Catalog.Search(r.Context(), analysis.Keywords)
	writeJSON(w, http.StatusOK, generateResponse{Analysis: analysis, SpotifyResults: results, Prompt: prompt})
}

func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	var req addSongRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry := models.NewQueueEntry(userID, models.Track{
		SpotifyTrackID: strings.TrimSpace(req.SpotifyTrackID),
		Title:          strings.TrimSpace(req.Title),
		Artist:         strings.TrimSpace(req.Artist),
		SpotifyURI:     strings.TrimSpace(req.SpotifyURI),
		PreviewURL:     req.PreviewURL,
		AlbumArtURL:    req.AlbumArtURL,
	})

	if err := s.deps.Queue.Add(entry); err != nil {
		switch {
		case errors.Is(err, shared.ErrValidation):
			writeError(w, http.StatusBadRequest, message(err, shared.ErrValidation))
		case errors.Is(err, shared.ErrConflict):
			writeError(w, http.StatusBadRequest, "Song already in mixtape queue")
		case errors.Is(err, shared.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			s.internalError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleRemoveSong(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	var req removeSongRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	trackID := strings.TrimSpace(req.SpotifyTrackID)
	if trackID == "" {
		writeError(w, http.StatusBadRequest, "spotify_track_id is required")
		return
	}

	if err := s.deps.Queue.Remove(userID, trackID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Song not found in mixtape queue")
			return
		}
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	queue, err := s.deps.Queue.List(userID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]models.QueueEntry{"queue": queue})
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	var req expandRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.deps.Expander.Expand(r.Context(), userID, req.Songs)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrValidation):
			writeError(w, http.StatusBadRequest, message(err, shared.ErrValidation))
		case errors.Is(err, shared.ErrUpstreamFormat), errors.Is(err, shared.ErrUpstreamUnavailable):
			s.logger.Error("expansion failed", "user", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "Could not generate a playlist from these songs")
		default:
			s.internalError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
