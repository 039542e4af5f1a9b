package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamprs/prtracker/internal/models"
)

func TestExportPullRequests(t *testing.T) {
	service := NewExportService(NewStatusService())

	prs := []models.PullRequest{
		{
			Repository:         "svc-a",
			Number:             7,
			Title:              "Fix login",
			Author:             "alice",
			CreatedAt:          time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC),
			RequestedReviewers: []string{"bob"},
			Mergeable:          boolPtr(true),
			MergeableState:     models.MergeableStateClean,
		},
	}

	f, err := service.ExportPullRequests(prs, nil)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{exportSheet}, f.GetSheetList())

	header, err := f.GetCellValue(exportSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Repository", header)

	repo, err := f.GetCellValue(exportSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "svc-a", repo)

	pending, err := f.GetCellValue(exportSheet, "F2")
	require.NoError(t, err)
	assert.Equal(t, "bob", pending)

	merge, err := f.GetCellValue(exportSheet, "I2")
	require.NoError(t, err)
	assert.Equal(t, "not_mergeable (awaiting first review)", merge)
}

func TestExportEmptyList(t *testing.T) {
	service := NewExportService(NewStatusService())

	f, err := service.ExportPullRequests(nil, nil)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
