package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func previewRequest(t *testing.T, body string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/operator/layout/preview", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func TestPreviewLayoutRendersDesign(t *testing.T) {
	h := &OperatorHandler{}
	body := `{
		"config": {"rows": 3, "cols_left": 2, "cols_right": 1},
		"seats": [
			{"deck": "LOWER", "row": 0, "col": 0, "type": "SLEEPER"},
			{"deck": "LOWER", "row": 0, "col": 1, "type": "SEATER"},
			{"row": 2, "col": 2, "type": "SEATER"}
		]
	}`
	rec, c := previewRequest(t, body)
	if err := h.PreviewLayout(c); err != nil {
		t.Fatalf("PreviewLayout: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		TotalSeats int `json:"total_seats"`
		Decks      []struct {
			Deck  string            `json:"deck"`
			Left  [][]json.RawMessage `json:"left"`
			Right [][]json.RawMessage `json:"right"`
		} `json:"decks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.TotalSeats != 3 {
		t.Fatalf("total_seats = %d, want 3", resp.TotalSeats)
	}
	if len(resp.Decks) != 1 || resp.Decks[0].Deck != "LOWER" {
		t.Fatalf("want a single lower deck, got %+v", resp.Decks)
	}
	if len(resp.Decks[0].Left) != 3 || len(resp.Decks[0].Left[0]) != 2 {
		t.Fatalf("left block should be 3x2, got %dx%d", len(resp.Decks[0].Left), len(resp.Decks[0].Left[0]))
	}
}

func TestPreviewLayoutRejectsBadPlacement(t *testing.T) {
	h := &OperatorHandler{}
	// Sleeper at the last row cannot span downward.
	body := `{
		"config": {"rows": 2, "cols_left": 1, "cols_right": 1},
		"seats": [{"row": 1, "col": 0, "type": "SLEEPER"}]
	}`
	rec, c := previewRequest(t, body)
	if err := h.PreviewLayout(c); err != nil {
		t.Fatalf("PreviewLayout: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body = %s", rec.Code, rec.Body.String())
	}
}

func TestPreviewLayoutReportsAllConfigViolations(t *testing.T) {
	h := &OperatorHandler{}
	body := `{"config": {"rows": 0, "cols_left": 0, "cols_right": 1}, "seats": []}`
	rec, c := previewRequest(t, body)
	if err := h.PreviewLayout(c); err != nil {
		t.Fatalf("PreviewLayout: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var resp struct {
		Violations []string `json:"violations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Violations) < 2 {
		t.Fatalf("want every violation listed, got %v", resp.Violations)
	}
}
