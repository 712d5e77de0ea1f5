package controllers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yigit/univote/internal/app/services"
)

func TestExportFileName(t *testing.T) {
	at := time.Date(2024, 3, 14, 9, 5, 7, 0, time.UTC)

	tests := []struct {
		name string
		req  services.ExportRequest
		want string
	}{
		{"json all sessions", services.ExportRequest{Format: services.ExportJSON}, "univote-all-20240314-090507.json"},
		{"json session", services.ExportRequest{Format: services.ExportJSON, SessionID: "2024"}, "univote-2024-20240314-090507.json"},
		{
			"csv names dataset",
			services.ExportRequest{Format: services.ExportCSV, Dataset: services.DatasetBallots, SessionID: "2024"},
			"univote-2024-ballots-20240314-090507.csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exportFileName(tt.req, at); got != tt.want {
				t.Fatalf("exportFileName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseBoolQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request = httptest.NewRequest("GET", "/?hasVoted=true&active=maybe", nil)

	if v := parseBoolQuery(ctx, "hasVoted"); v == nil || !*v {
		t.Fatalf("hasVoted = %v, want true", v)
	}
	if v := parseBoolQuery(ctx, "active"); v != nil {
		t.Fatalf("malformed flag should be ignored, got %v", *v)
	}
	if v := parseBoolQuery(ctx, "missing"); v != nil {
		t.Fatal("absent flag should be nil")
	}
}
