package reports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CampaignProgressPDF renders the campaign's completion state to
// storage/reports/<campaignID>.pdf and returns the path. Existing files
// are overwritten so repeated exports stay current.
func (s *Service) CampaignProgressPDF(ctx context.Context, tenantID, campaignID string) (string, error) {
	c, err := s.Campaigns.Get(ctx, tenantID, campaignID)
	if err != nil {
		return "", err
	}
	progress, err := s.Campaigns.Progress(ctx, tenantID, campaignID)
	if err != nil {
		return "", err
	}
	breakdown, err := s.Store.StatusBreakdown(ctx, tenantID, campaignID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll("storage/reports", 0o755); err != nil {
		return "", err
	}
	filePath := filepath.Join("storage/reports", campaignID+".pdf")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Campaign Progress")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Campaign: %s", c.Name))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Kind: %s   Status: %s", c.Kind, c.Status))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04")))
	pdf.Ln(10)
	pdf.Cell(0, 8, fmt.Sprintf("Completed: %d of %d (%d%%)", progress.CompletedEvaluations, progress.TotalEmployees, progress.Percentage))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "By status")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	for _, row := range breakdown {
		pdf.Cell(0, 8, fmt.Sprintf("%s: %d", row.Status, row.Count))
		pdf.Ln(7)
	}

	if len(progress.Employees) > 0 {
		pdf.Ln(5)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "By employee")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 12)
		for _, item := range progress.Employees {
			pdf.Cell(0, 8, fmt.Sprintf("%s %s: %s", item.FirstName, item.LastName, item.Status))
			pdf.Ln(7)
		}
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", err
	}
	return filePath, nil
}
