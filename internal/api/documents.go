package api

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/starford/recruitflow/internal/checksum"
)

const maxUploadBytes = 20 << 20 // 20 MB

// UploadCV handles PUT /api/candidates/{id}/cv (multipart/form-data, field "file").
//
//	@Summary		Attach or replace a candidate CV
//	@Tags			candidates
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		string	true	"Candidate ID"
//	@Param			file	formData	file	true	"CV file"
//	@Success		200		{object}	CVUploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/candidates/{id}/cv [put]
func (h *Handler) UploadCV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	c, err := h.eng.AttachCV(r.Context(), idParam(r), header.Filename, content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CVUploadResponse{
		Candidate: c,
		Size:      int64(len(content)),
		Checksum:  checksum.Sum(content),
	})
}

// DownloadCV handles GET /api/candidates/{id}/cv. The checksum of the file
// is sent as a strong ETag.
func (h *Handler) DownloadCV(w http.ResponseWriter, r *http.Request) {
	ref, data, err := h.eng.ReadCV(r.Context(), idParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	name := path.Base(ref)
	w.Header().Set("ETag", checksum.ETag(checksum.Sum(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
}

// DeleteCV handles DELETE /api/candidates/{id}/cv.
func (h *Handler) DeleteCV(w http.ResponseWriter, r *http.Request) {
	c, err := h.eng.DetachCV(r.Context(), idParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
