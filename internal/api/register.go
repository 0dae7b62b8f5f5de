// internal/api/register.go
package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	apperrors "childcare-registration/internal/common/errors"
	"childcare-registration/internal/common/validation"
	"childcare-registration/internal/models"
	resumeapplication "childcare-registration/internal/workers/registration/resume-application"
	savedraft "childcare-registration/internal/workers/registration/save-draft"
	submitapplication "childcare-registration/internal/workers/registration/submit-application"

	"github.com/go-chi/chi/v5/middleware"
)

// jsonPost is a JSON registration post. application_id travels beside the payload.
type jsonPost struct {
	ApplicationID string `json:"application_id"`
	models.Payload
}

// registration is a decoded post of either encoding.
type registration struct {
	Payload       *models.Payload
	ApplicationID string
	Echo          interface{}
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Resume.Execute(r.Context(), &resumeapplication.Input{
		ApplicationID: s.applicationID(r, ""),
	})
	if err != nil {
		s.fail(w, r, apperrors.NewPersistenceFailedError(err))
		return
	}
	if out.Application != nil {
		s.setApplicationCookie(w, out.Application.ID.String())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	reg, shapeErrs, stdErr := s.decodeRegistration(r)
	if stdErr != nil {
		s.fail(w, r, stdErr)
		return
	}
	if len(shapeErrs) > 0 {
		writeValidationError(w, shapeErrs, reg.Echo)
		return
	}

	id := s.applicationID(r, reg.ApplicationID)
	switch reg.Payload.Action {
	case models.ActionSaveAndContinue, models.ActionSaveAndExit:
		s.saveDraft(w, r, id, reg)
	case models.ActionSubmit:
		s.submit(w, r, id, reg)
	default:
		s.fail(w, r, apperrors.NewInvalidPayloadError("unknown action "+reg.Payload.Action))
	}
}

func (s *Server) saveDraft(w http.ResponseWriter, r *http.Request, id string, reg *registration) {
	out, err := s.deps.SaveDraft.Execute(r.Context(), &savedraft.Input{
		ApplicationID: id,
		Payload:       *reg.Payload,
	})
	if err != nil {
		s.fail(w, r, registrationError(err, id))
		return
	}
	s.setApplicationCookie(w, out.ApplicationID)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, id string, reg *registration) {
	out, err := s.deps.Submit.Execute(r.Context(), &submitapplication.Input{
		ApplicationID: id,
		Payload:       *reg.Payload,
	})
	if err != nil {
		s.fail(w, r, registrationError(err, id))
		return
	}
	if !out.Submitted {
		writeValidationError(w, out.Errors, reg.Echo)
		return
	}
	s.setApplicationCookie(w, out.ApplicationID)
	writeJSON(w, http.StatusOK, out)
}

// decodeRegistration reads a JSON or form-encoded post. Shape violations of a
// JSON body come back as field errors rather than a StandardError.
func (s *Server) decodeRegistration(r *http.Request) (*registration, []validation.FieldError, *apperrors.StandardError) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, nil, apperrors.NewInvalidPayloadError(err.Error())
		}
		var doc interface{}
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, nil, apperrors.NewInvalidPayloadError("body is not valid JSON")
		}
		reg := &registration{Echo: doc}

		shapeErrs, err := validation.ValidatePayloadShape(doc)
		if err != nil {
			return nil, nil, apperrors.NewInternalError(err)
		}
		if len(shapeErrs) > 0 {
			return reg, shapeErrs, nil
		}

		var post jsonPost
		if err := json.Unmarshal(body, &post); err != nil {
			return nil, nil, apperrors.NewInvalidPayloadError(err.Error())
		}
		reg.Payload = &post.Payload
		reg.ApplicationID = post.ApplicationID
		return reg, nil, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, nil, apperrors.NewInvalidPayloadError(err.Error())
	}
	post, err := decodeForm(r.PostForm)
	if err != nil {
		return nil, nil, apperrors.NewInvalidPayloadError(err.Error())
	}
	return &registration{
		Payload:       post.Payload,
		ApplicationID: post.ApplicationID,
		Echo:          echoForm(r.PostForm),
	}, nil, nil
}

// applicationID resolves the current application: the query string first,
// then the posted value, then the cookie.
func (s *Server) applicationID(r *http.Request, posted string) string {
	if id := strings.TrimSpace(r.URL.Query().Get("application_id")); id != "" {
		return id
	}
	if posted != "" {
		return posted
	}
	if c, err := r.Cookie(s.deps.Config.CookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func (s *Server) setApplicationCookie(w http.ResponseWriter, id string) {
	if id == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.deps.Config.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   s.deps.Config.CookieMaxAge,
		HttpOnly: true,
		Secure:   s.deps.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func registrationError(err error, id string) *apperrors.StandardError {
	switch {
	case errors.Is(err, savedraft.ErrApplicationLocked), errors.Is(err, submitapplication.ErrApplicationLocked):
		return apperrors.NewApplicationLockedError(id)
	default:
		return apperrors.NewPersistenceFailedError(err)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, stdErr *apperrors.StandardError) {
	fields := map[string]interface{}{
		"code":      string(stdErr.Code),
		"path":      r.URL.Path,
		"requestId": middleware.GetReqID(r.Context()),
	}
	if stdErr.HTTPStatus() >= http.StatusInternalServerError {
		fields["details"] = stdErr.Details
		s.logger.Error("request failed", fields)
	} else {
		s.logger.Info("request rejected", fields)
	}
	writeError(w, stdErr)
}
