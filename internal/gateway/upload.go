package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	transcribeaudio "voicecoach-gateway/internal/coaching/transcribe-audio"
	"voicecoach-gateway/internal/common/config"
	apperrors "voicecoach-gateway/internal/common/errors"
	"voicecoach-gateway/internal/models"
	"voicecoach-gateway/pkg/registry"
)

const (
	audioField  = "audio"
	scriptField = "original_script_json"

	// multipartMemory is how much of a form is held in memory before spilling
	// file parts to disk.
	multipartMemory = 8 << 20
)

var extensionTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
	".aac":  "audio/aac",
	".m4a":  "audio/x-m4a",
	".mp4":  "audio/mp4",
	".aif":  "audio/aiff",
	".aiff": "audio/aiff",
}

// sniffed containers that carry audio under a non-audio type.
var sniffAliases = map[string]string{
	"video/webm":      "audio/webm",
	"application/ogg": "audio/ogg",
	"video/mp4":       "audio/mp4",
}

type audioPolicy struct {
	maxBytes int64
	allowed  map[string]bool
}

func newAudioPolicy(cfg config.AudioConfig) *audioPolicy {
	p := &audioPolicy{
		maxBytes: cfg.MaxUploadBytes,
		allowed:  make(map[string]bool, len(cfg.AllowedMimeTypes)),
	}
	if p.maxBytes <= 0 {
		p.maxBytes = 20 << 20
	}
	for _, m := range cfg.AllowedMimeTypes {
		p.allowed[normalizeMediaType(m)] = true
	}
	return p
}

func (p *audioPolicy) permits(mimeType string) bool {
	return p.allowed[mimeType]
}

func (h *handlers) parseAnalyzeRequest(c *gin.Context) (*models.AnalyzeRequest, error) {
	r := c.Request
	if r.ContentLength > h.audio.maxBytes {
		return nil, apperrors.NewPayloadTooLargeError(h.audio.maxBytes)
	}
	r.Body = http.MaxBytesReader(c.Writer, r.Body, h.audio.maxBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.NewPayloadTooLargeError(h.audio.maxBytes)
		}
		return nil, apperrors.NewValidationError("", apperrors.FieldError{
			Field:   "body",
			Message: "must be multipart/form-data",
		})
	}
	defer r.MultipartForm.RemoveAll()

	var fields []apperrors.FieldError

	var fileHeader *multipart.FileHeader
	if files := r.MultipartForm.File[audioField]; len(files) > 0 {
		fileHeader = files[0]
	} else {
		fields = append(fields, apperrors.FieldError{Field: audioField, Message: "is required"})
	}

	rawScript := ""
	if values := r.MultipartForm.Value[scriptField]; len(values) > 0 {
		rawScript = strings.TrimSpace(values[0])
	}
	if rawScript == "" {
		fields = append(fields, apperrors.FieldError{Field: scriptField, Message: "is required"})
	}

	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("", fields...)
	}

	if err := h.validate(registry.OperationAnalyze, []byte(rawScript), scriptField); err != nil {
		return nil, err
	}
	script, err := decodeOriginalScript(rawScript)
	if err != nil {
		return nil, apperrors.NewValidationError("", apperrors.FieldError{Field: scriptField, Message: err.Error()})
	}

	audio, err := readFilePart(fileHeader)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, apperrors.NewValidationError("", apperrors.FieldError{Field: audioField, Message: "must not be empty"})
	}

	mimeType := resolveMimeType(fileHeader, audio)
	if !h.audio.permits(mimeType) {
		return nil, apperrors.NewUnsupportedMediaTypeError(mimeType)
	}

	return &models.AnalyzeRequest{
		Audio:          audio,
		MimeType:       mimeType,
		Filename:       fileHeader.Filename,
		OriginalScript: script,
	}, nil
}

func readFilePart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return data, nil
}

// decodeOriginalScript accepts {"script": [...]} or a bare [...]. The shape
// has already been checked against the registry schema.
func decodeOriginalScript(raw string) ([]models.ScriptLine, error) {
	var lines []models.ScriptLine
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &lines); err != nil {
			return nil, err
		}
		return lines, nil
	}

	var container struct {
		Script []models.ScriptLine `json:"script"`
	}
	if err := json.Unmarshal([]byte(raw), &container); err != nil {
		return nil, err
	}
	return container.Script, nil
}

func resolveMimeType(fh *multipart.FileHeader, data []byte) string {
	return DetectAudioType(fh.Filename, fh.Header.Get("Content-Type"), data)
}

// DetectAudioType prefers the declared type, then the filename extension,
// then the content itself. application/octet-stream counts as undeclared.
func DetectAudioType(filename, declared string, data []byte) string {
	if mt := normalizeMediaType(declared); isDeclared(mt) {
		return mt
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if mt, ok := extensionTypes[ext]; ok {
		return mt
	}
	if mt := normalizeMediaType(mime.TypeByExtension(ext)); ext != "" && isDeclared(mt) {
		return mt
	}

	if len(data) > 0 {
		mt := normalizeMediaType(mimetype.Detect(data).String())
		if alias, ok := sniffAliases[mt]; ok {
			mt = alias
		}
		if strings.HasPrefix(mt, "audio/") {
			return mt
		}
	}
	return transcribeaudio.DefaultMimeType
}

func isDeclared(mt string) bool {
	return mt != "" && mt != "application/octet-stream"
}

// normalizeMediaType lowercases and strips parameters such as codecs=opus.
func normalizeMediaType(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		if i := strings.IndexByte(v, ';'); i >= 0 {
			v = v[:i]
		}
		return strings.ToLower(strings.TrimSpace(v))
	}
	return strings.ToLower(mt)
}
