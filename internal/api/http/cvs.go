package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/jobassist/jobassist/internal/api/domain"
	"github.com/jobassist/jobassist/internal/api/service"
	"github.com/jobassist/jobassist/pkg/httpx"
)

type CVHandler struct {
	CVs         *service.CVService
	Credentials *service.CredentialService
}

// HandleUpload godoc
//
//	@Summary		Upload a CV file
//	@Description	Accepts a PDF or image, extracts its text and structures it.
//	@Description	A new version is stored only when the document is recognised as a CV.
//	@Tags			CVs
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	true	"CV (.pdf, .jpg, .jpeg, .png)"
//	@Success		200		{object}	UploadResponse
//	@Failure		400		{object}	ErrorResponse	"unsupported_file, empty_cv or invalid_cv"
//	@Failure		413		{object}	ErrorResponse	"file_too_large"
//	@Failure		503		{object}	ErrorResponse	"enrichment_unavailable"
//	@Router			/cvs/upload [post].
func (h *CVHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := httpx.UserIDFromContext(ctx)

	mr, err := r.MultipartReader()
	if err != nil {
		ErrInvalidContentType.WriteError(w)
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			ErrInvalidRequest.WriteError(w)
			return
		}
		if err != nil {
			writeUploadReadError(w, r, err)
			return
		}
		if part.FormName() != "file" || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		u, err := h.Credentials.GetUser(ctx, userID)
		if err != nil {
			writeServiceError(w, r, "upload cv", err)
			return
		}

		res, err := h.CVs.Upload(ctx, u, part.FileName(), part)
		_ = part.Close()
		if err != nil {
			writeUploadReadError(w, r, err)
			return
		}

		resp := UploadResponse{IsCV: res.IsCV, Reason: res.Reason}
		if res.CV != nil {
			cv := newCVResponse(*res.CV)
			resp.CV = &cv
		}
		httpx.WriteJSON(w, http.StatusOK, resp)
		return
	}
}

func writeUploadReadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		ErrFileTooLarge.WriteError(w)
		return
	}
	writeServiceError(w, r, "upload cv", err)
}

// HandleManual godoc
//
//	@Summary		Create a CV by hand
//	@Tags			CVs
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		domain.CVDocument	true	"CV content"
//	@Success		201		{object}	CVResponse
//	@Failure		400		{object}	ErrorResponse	"empty_cv or invalid_cv"
//	@Router			/cvs/manual [post].
func (h *CVHandler) HandleManual(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	var doc domain.CVDocument
	if err := httpx.DecodeJSON(r, &doc); err != nil {
		ErrInvalidRequest.WriteError(w)
		return
	}

	cv, err := h.CVs.CreateManual(r.Context(), userID, doc)
	if err != nil {
		writeServiceError(w, r, "create cv", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newCVResponse(cv))
}

// HandleLatest godoc
//
//	@Summary		Latest CV version
//	@Tags			CVs
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	CVResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/cvs/me/latest [get].
func (h *CVHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	cv, err := h.CVs.Latest(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "latest cv", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newCVResponse(cv))
}

// HandleList godoc
//
//	@Summary		Every CV version, newest first
//	@Tags			CVs
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}	CVResponse
//	@Router			/cvs/me [get].
func (h *CVHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	cvs, err := h.CVs.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "list cvs", err)
		return
	}
	out := make([]CVResponse, 0, len(cvs))
	for _, cv := range cvs {
		out = append(out, newCVResponse(cv))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
