package handlers

import (
	"errors"
	"io"
	"net/http"

	"oms-backend/pkg/storage"
	"oms-backend/pkg/utils"
)

// multipart envelope allowance on top of the file limit
const formOverhead = 1 << 20

type UploadHandler struct {
	uploader *storage.Uploader
}

func NewUploadHandler(uploader *storage.Uploader) *UploadHandler {
	return &UploadHandler{uploader: uploader}
}

// POST /api/upload (multipart: file, kind, organizationId)
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.uploader.MaxBytes()+formOverhead)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			utils.WriteDomainError(w, r, storage.ErrTooLarge)
			return
		}
		utils.WriteBadRequestResponse(w, "Expected a multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteBadRequestResponse(w, "file is required")
		return
	}
	defer file.Close()

	kind := r.FormValue("kind")
	orgID := r.FormValue("organizationId")
	if kind == storage.KindLogo {
		if orgID == "" {
			orgID = user.OrganizationID
		}
		if !canManageOrg(user, orgID) {
			utils.WriteForbiddenResponse(w, "Only the organization's officer can upload its logo")
			return
		}
	}

	// 只信任嗅探出的类型, 客户端声明的 Content-Type 不可信
	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		utils.WriteBadRequestResponse(w, "Could not read uploaded file")
		return
	}
	contentType := http.DetectContentType(sniff[:n])
	// rewind so the store gets the original seekable file (S3 signs the payload)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}

	url, err := h.uploader.Upload(r.Context(), storage.UploadRequest{
		Kind:           kind,
		OrganizationID: orgID,
		Filename:       header.Filename,
		ContentType:    contentType,
		Size:           header.Size,
		Body:           file,
	})
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, map[string]string{"url": url})
}
