package services

import (
	"fmt"
	"strings"

	"github.com/teamprs/prtracker/internal/models"
	"github.com/xuri/excelize/v2"
)

// ExportService writes the dashboard's pull request list to an xlsx report.
type ExportService struct {
	status *StatusService
}

func NewExportService(status *StatusService) *ExportService {
	return &ExportService{status: status}
}

const exportSheet = "Pull Requests"

// ExportPullRequests builds a workbook with one row per pull request.
func (s *ExportService) ExportPullRequests(prs []models.PullRequest, overrides map[models.PRKey]string) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headers := []interface{}{
		"Repository", "Number", "Title", "Author", "Created",
		"Pending Reviewers", "Reviewed", "Unresolved", "Mergeable", "Slack Link",
	}
	if err := f.SetSheetRow(exportSheet, "A1", &headers); err != nil {
		return nil, err
	}

	for i, pr := range prs {
		status := s.status.ReviewStatus(pr)
		mergeability := s.status.Mergeability(pr)

		mergeCell := string(mergeability.State)
		if mergeability.Reason != "" {
			mergeCell = fmt.Sprintf("%s (%s)", mergeability.State, mergeability.Reason)
		}

		row := []interface{}{
			pr.Repository,
			pr.Number,
			pr.Title,
			pr.Author,
			pr.CreatedAt.Format("2006-01-02 15:04"),
			strings.Join(status.Pending, ", "),
			strings.Join(status.Reviewed, ", "),
			s.status.UnresolvedCount(pr),
			mergeCell,
			s.status.SlackLink(pr, overrides),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	return f, nil
}
