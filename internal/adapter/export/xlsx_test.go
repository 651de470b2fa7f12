package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fairyhunter13/softrate-ats/internal/usecase"
)

func intPtr(v int) *int { return &v }

func TestWriteXLSX(t *testing.T) {
	applied := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := []usecase.CandidateRow{
		{CandidateID: "c1", Name: "Ada", Email: "ada@example.com", University: "MIT", ApplicationID: "a1",
			RoleTitle: "AI Engineer", Stage: 5, Status: "Qualified", ResumeScore: intPtr(80), FinalScore: intPtr(76), AppliedAt: applied},
		{CandidateID: "c1", Name: "Ada", Email: "ada@example.com", University: "MIT", ApplicationID: "a2",
			RoleTitle: "Full Stack Developer", Stage: -1, Status: "Disqualified", Disqualified: "tab switch"},
		{CandidateID: "c2", Name: "Linus", Email: "linus@example.com", Status: usecase.NotStarted},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rows, applied))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Summary", "Candidates"}, f.GetSheetList())

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"Generated At", "2026-03-01T10:00:00Z"}, summary[0])
	assert.Equal(t, []string{"Candidates", "2"}, summary[1])
	assert.Equal(t, []string{"Applications", "2"}, summary[2])
	assert.Contains(t, summary, []string{"Qualified", "1"})
	assert.Contains(t, summary, []string{"Disqualified", "1"})

	cands, err := f.GetRows("Candidates")
	require.NoError(t, err)
	require.Len(t, cands, 4)
	assert.Equal(t, candidateHeaders, cands[0])
	assert.Equal(t, []string{"Ada", "ada@example.com", "MIT", "AI Engineer", "5", "Qualified", "80", "76", "", "2026-03-01T10:00:00Z"}, cands[1])
	assert.Equal(t, "tab switch", cands[2][8])
	assert.Equal(t, "Not Started", cands[3][5])
}

func TestWriteXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil, time.Now()))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	rows, err := f.GetRows("Candidates")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
