package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/auth"
	"github.com/fairyhunter13/softrate-ats/internal/usecase"
)

type signupRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"required,email,max=320"`
	Password   string `json:"password" validate:"required,min=8,max=200"`
	University string `json:"university" validate:"max=200"`
}

type authResponse struct {
	sessionResponse
	Candidate candidateView `json:"candidate"`
}

// Signup registers a candidate and signs them in.
func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.Accounts.Signup(r.Context(), usecase.SignupInput{
		Name:       SanitizeString(req.Name, 200),
		Email:      req.Email,
		Password:   req.Password,
		University: SanitizeString(req.University, 200),
	})
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	sess, err := issueSession(w, r, s.Sessions, auth.RoleCandidate, c.ID)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	LoggerFrom(r).Info("candidate signed up", slog.String("candidate_id", c.ID))
	writeJSON(w, http.StatusCreated, authResponse{sessionResponse: sess, Candidate: toCandidateView(c)})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,max=320"`
	Password string `json:"password" validate:"required,max=200"`
}

// Login checks candidate credentials and issues a session.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	sess, err := issueSession(w, r, s.Sessions, auth.RoleCandidate, c.ID)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{sessionResponse: sess, Candidate: toCandidateView(c)})
}

// Me returns the signed-in candidate's profile.
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	c, err := s.Accounts.Profile(r.Context(), candidateID(r))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, toCandidateView(c))
}

type profileRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	University string `json:"university" validate:"max=200"`
}

// UpdateMe edits the candidate's name and university.
func (s *Server) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.Accounts.UpdateProfile(r.Context(), candidateID(r), SanitizeString(req.Name, 200), SanitizeString(req.University, 200))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, toCandidateView(c))
}

// MyApplications lists every application of the candidate with role titles.
func (s *Server) MyApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.Pipeline.Applications(r.Context(), candidateID(r))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	out := make([]applicationView, 0, len(apps))
	for _, a := range apps {
		out = append(out, toApplicationView(a.Application, a.RoleTitle))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}
