package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/Manjussha/tokenbench/internal/intake"
)

// FormField is the multipart field carrying uploaded files.
const FormField = "files"

// ListQueue handles GET /api/v1/queue.
func (h *Handler) ListQueue(w http.ResponseWriter, r *http.Request) {
	ok(w, h.ws.Queue())
}

// UploadFiles handles POST /api/v1/queue (multipart, field "files").
// Accepted files join the queue; rejected ones are listed with a reason.
func (h *Handler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		fail(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[FormField]
	if len(headers) == 0 {
		fail(w, http.StatusBadRequest, "No files selected")
		return
	}
	files := make([]intake.File, 0, len(headers))
	for _, fh := range headers {
		content, err := readPart(fh)
		if err != nil {
			fail(w, http.StatusBadRequest, "read "+fh.Filename+": "+err.Error())
			return
		}
		files = append(files, intake.NewFile(fh.Filename, content))
	}

	_, rejected := h.ws.AddFiles(files)
	if rejected == nil {
		rejected = []intake.Rejection{}
	}
	ok(w, map[string]interface{}{
		"queue":    h.ws.Queue(),
		"rejected": rejected,
	})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ClearQueue handles DELETE /api/v1/queue.
func (h *Handler) ClearQueue(w http.ResponseWriter, r *http.Request) {
	h.ws.ClearQueue()
	ok(w, h.ws.Queue())
}

// RemoveFile handles DELETE /api/v1/queue/{index}.
func (h *Handler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(pathID(r, "index"))
	if err != nil {
		fail(w, http.StatusBadRequest, "invalid index")
		return
	}
	if err := h.ws.RemoveFile(index); err != nil {
		failErr(w, err)
		return
	}
	ok(w, h.ws.Queue())
}

// SetTokenizer handles PUT /api/v1/tokenizer.
func (h *Handler) SetTokenizer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Encoding string `json:"encoding"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.ws.SetTokenizer(req.Encoding); err != nil {
		failErr(w, err)
		return
	}
	ok(w, map[string]string{"encoding": h.ws.Tokenizer()})
}
