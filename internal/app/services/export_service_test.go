package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/pkg/apperrors"
)

func seedExport(t *testing.T, env *testEnv) (*models.Candidate, *models.Candidate) {
	t.Helper()
	env.open(t)
	pres := env.candidate(t, models.OfficePresident)
	sec := env.candidate(t, models.OfficeSecretary)
	env.cast(t, env.voter(t), models.Selections{models.OfficePresident: pres.ID, models.OfficeSecretary: sec.ID})
	env.cast(t, env.voter(t), models.Selections{models.OfficePresident: pres.ID})
	env.voter(t)
	return pres, sec
}

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return records
}

func TestExportResultsCSV(t *testing.T) {
	env := newTestEnv(t)
	pres, sec := seedExport(t, env)

	var buf bytes.Buffer
	if err := env.svc.Export.Export(context.Background(), &buf, ExportRequest{Format: ExportCSV, ActorID: 1}); err != nil {
		t.Fatalf("export: %v", err)
	}
	records := readCSV(t, &buf)
	if len(records) != 3 {
		t.Fatalf("rows = %v", records)
	}
	if records[0][0] != "office" || records[0][7] != "votes" {
		t.Fatalf("header = %v", records[0])
	}
	if records[1][0] != string(models.OfficePresident) || records[1][3] != strconv.FormatInt(pres.ID, 10) ||
		records[1][7] != "2" || records[1][8] != "100.00" {
		t.Fatalf("president row = %v", records[1])
	}
	if records[2][3] != strconv.FormatInt(sec.ID, 10) || records[2][7] != "1" {
		t.Fatalf("secretary row = %v", records[2])
	}
}

func TestExportBallotsCSV(t *testing.T) {
	env := newTestEnv(t)
	pres, _ := seedExport(t, env)

	var buf bytes.Buffer
	req := ExportRequest{Format: ExportCSV, Dataset: DatasetBallots, SessionID: "2024"}
	if err := env.svc.Export.Export(context.Background(), &buf, req); err != nil {
		t.Fatalf("export: %v", err)
	}
	records := readCSV(t, &buf)
	if len(records) != 3 {
		t.Fatalf("rows = %d", len(records))
	}
	if want := 5 + len(models.AllOffices); len(records[0]) != want {
		t.Fatalf("columns = %d, want %d", len(records[0]), want)
	}
	presCol := 5 + models.OfficePresident.Index()
	for _, row := range records[1:] {
		if row[2] != "2024" || row[4] != "true" || row[presCol] != strconv.FormatInt(pres.ID, 10) {
			t.Fatalf("ballot row = %v", row)
		}
	}
}

func TestExportVotersAndCandidatesCSV(t *testing.T) {
	env := newTestEnv(t)
	seedExport(t, env)

	for dataset, rows := range map[ExportDataset]int{DatasetVoters: 4, DatasetCandidates: 3} {
		var buf bytes.Buffer
		if err := env.svc.Export.Export(context.Background(), &buf, ExportRequest{Format: ExportCSV, Dataset: dataset}); err != nil {
			t.Fatalf("export %s: %v", dataset, err)
		}
		if got := len(readCSV(t, &buf)); got != rows {
			t.Fatalf("%s rows = %d, want %d", dataset, got, rows)
		}
	}
}

func TestExportJSONDocument(t *testing.T) {
	env := newTestEnv(t)
	seedExport(t, env)

	var buf bytes.Buffer
	if err := env.svc.Export.Export(context.Background(), &buf, ExportRequest{ActorID: 9}); err != nil {
		t.Fatalf("export: %v", err)
	}

	var doc ExportDocument
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Metadata.ExportedBy != 9 || doc.Metadata.SessionID != "all" || doc.Metadata.Format != ExportJSON {
		t.Fatalf("metadata = %+v", doc.Metadata)
	}
	if len(doc.Voters) != 3 || len(doc.Candidates) != 2 || len(doc.Ballots) != 2 {
		t.Fatalf("document sizes = %d voters, %d candidates, %d ballots", len(doc.Voters), len(doc.Candidates), len(doc.Ballots))
	}
	if doc.Results == nil || doc.Results.Stats.TotalVotes != 2 {
		t.Fatalf("results = %+v", doc.Results)
	}
	if bytes.Contains(buf.Bytes(), []byte("password")) {
		t.Fatal("export leaked password hashes")
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	env := newTestEnv(t)
	for _, req := range []ExportRequest{{Format: "xml"}, {Format: ExportCSV, Dataset: "admins"}} {
		err := env.svc.Export.Export(context.Background(), &bytes.Buffer{}, req)
		if !errors.Is(err, apperrors.ErrValidationFailed) {
			t.Fatalf("export %+v = %v", req, err)
		}
	}
}
