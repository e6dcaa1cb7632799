package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/metasync/internal/core"
	"github.com/JonMunkholm/metasync/internal/tabular"
)

// sheetRequest selects a remote sheet. A URL reads a published HTML table;
// otherwise the Sheets API is used with the server's credentials.
type sheetRequest struct {
	SpreadsheetID string `json:"spreadsheetId"`
	Range         string `json:"range"`
	URL           string `json:"url"`
	Selector      string `json:"selector"`
	Published     bool   `json:"published"`
}

type sheetResponse struct {
	Success bool `json:"success"`
	*core.SheetPreview
}

func (s *Server) sourceFor(req sheetRequest) tabular.Source {
	if strings.TrimSpace(req.URL) != "" {
		return tabular.HTMLTableSource{
			URL:       strings.TrimSpace(req.URL),
			Selector:  req.Selector,
			Published: req.Published,
		}
	}
	return s.service.SheetsSource(strings.TrimSpace(req.SpreadsheetID), strings.TrimSpace(req.Range))
}

// handleSheetPreview loads a remote sheet and returns headers, rows and the
// suggested mapping.
func (s *Server) handleSheetPreview(w http.ResponseWriter, r *http.Request) {
	var req sheetRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	preview, err := s.service.LoadSheet(r.Context(), s.sourceFor(req))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sheetResponse{Success: true, SheetPreview: preview})
}

// handleSheetUpload reads an uploaded CSV file from the "file" form field.
// An optional "delimiter" field selects another single-character separator.
func (s *Server) handleSheetUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Server.MaxUploadSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize))
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, core.ErrNoFile)
		return
	}
	defer file.Close()

	src := tabular.CSVSource{Reader: file, Name: header.Filename}
	if d := r.FormValue("delimiter"); d != "" {
		if utf8.RuneCountInString(d) != 1 {
			s.respondError(w, r, fmt.Errorf("%w: delimiter must be one character", core.ErrInvalidRequest))
			return
		}
		src.Comma, _ = utf8.DecodeRuneInString(d)
	}

	preview, err := s.service.LoadSheet(r.Context(), src)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sheetResponse{Success: true, SheetPreview: preview})
}
