package public

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/beanscene/api/internal/interfaces/http/common"
	publicapp "github.com/beanscene/api/internal/public/application"
)

const photoFormField = "photo"

func (h *Handler) photoUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := common.SessionFromContext(r.Context())
		if !ok || !session.Authenticated() {
			common.WriteError(h.logger, w, r, publicapp.ErrAuthRequired)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, common.MaxPhotoRequestBody)
		file, header, err := r.FormFile(photoFormField)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				common.WriteError(h.logger, w, r, &publicapp.ValidationError{Field: "photo", Message: "must be at most 5MB"})
				return
			}
			common.WriteError(h.logger, w, r, &publicapp.ValidationError{Field: "photo", Message: "attach the image as multipart field \"photo\""})
			return
		}
		defer file.Close()

		// One byte past the limit is enough to reject oversized files.
		data, err := io.ReadAll(io.LimitReader(file, publicapp.MaxPhotoBytes+1))
		if err != nil {
			common.WriteError(h.logger, w, r, &publicapp.ValidationError{Field: "photo", Message: "could not read the upload"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.UploadTimeout)
		defer cancel()

		photo, err := h.photos.Upload(ctx, session, header.Filename, data)
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}

		common.WriteJSON(h.logger, w, http.StatusCreated, buildPhotoResponse(photo))
	}
}
