package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/benvon/expense-console/internal/apiclient"
	"github.com/benvon/expense-console/internal/models"
)

// ReceiptService is the /receipts resource
type ReceiptService struct {
	*Resource[models.Receipt]
}

// NewReceiptService creates the receipts client
func NewReceiptService(client *apiclient.Client) *ReceiptService {
	return &ReceiptService{Resource: NewResource[models.Receipt](client, "/receipts")}
}

// Upload attaches a receipt file to an expense
func (s *ReceiptService) Upload(ctx context.Context, expenseID int64, fileName, contentType string, content io.Reader) (*models.Receipt, error) {
	var out models.Receipt
	fields := map[string]string{"expenseId": strconv.FormatInt(expenseID, 10)}
	file := apiclient.FilePart{
		Field:       "file",
		FileName:    fileName,
		ContentType: contentType,
		Content:     content,
	}
	if err := s.client.Upload(ctx, s.path+"/upload", fields, file, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download fetches a stored receipt file by name
func (s *ReceiptService) Download(ctx context.Context, fileName string) ([]byte, string, error) {
	return s.client.Download(ctx, s.path+"/files/"+fileName)
}

// ListByExpense lists the receipts attached to one expense
func (s *ReceiptService) ListByExpense(ctx context.Context, expenseID int64) ([]models.Receipt, error) {
	var page models.Page[models.Receipt]
	path := fmt.Sprintf("%s/expense/%d", s.path, expenseID)
	if err := s.client.Do(ctx, http.MethodGet, path, nil, nil, &page); err != nil {
		return nil, err
	}
	return page.Items(), nil
}
