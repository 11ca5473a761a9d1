// Package views holds the page-level workflows of the console: what each
// screen loads, which backend calls its actions make, and the text it shows
// when something goes wrong.
package views

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/benvon/expense-console/internal/apiclient"
	"github.com/benvon/expense-console/internal/services/backend"
	"github.com/benvon/expense-console/internal/session"
	"github.com/benvon/expense-console/internal/validation"
)

// User-facing messages
const (
	MsgLoginFailed         = "Login failed. Please check your username and password."
	MsgAuthRequired        = "Authentication required. Please login again."
	MsgAccessDenied        = "Access denied. You do not have permission to perform this action."
	MsgViewDenied          = "Access denied. You do not have permission to view expenses."
	MsgInvalidData         = "Invalid data provided. Please check your input."
	MsgNetwork             = "Network error. Please check your connection and try again."
	MsgRateLimited         = "Too many requests. Please wait a moment and try again."
	MsgRegistrationFailed  = "Registration failed. Please try again."
	MsgRegistered          = "Registration successful! Please sign in."
	MsgReceiptTooLarge     = "File size must be less than 5MB"
	MsgReceiptType         = "Only PNG, JPG, JPEG, and PDF files are allowed"
	MsgReceiptUploadFailed = "Expense created but receipt upload failed. You can upload it later."
	MsgReceiptsLoadFailed  = "Failed to load receipts. Please try again."
	MsgDownloadFailed      = "Failed to download receipt. Please try again."
	MsgDeleteFailed        = "Failed to delete expense. Please try again."
	MsgApprovalDenied      = "Access denied. You may not have permission to approve this expense or your session may have expired."
	MsgApprovalNotFound    = "Approval record not found. This expense may not be ready for approval."
	MsgApprovalAuth        = "Authentication failed. Please log in again."
	MsgNotPermitted        = "Access denied. Your role does not allow this action."
	MsgUnexpected          = "Something went wrong. Please try again."
)

var (
	// ErrNotPermitted is returned when the identity lacks the role for an action
	ErrNotPermitted = errors.New("action not permitted for current role")
	// ErrNotAuthenticated is returned by actions that need an identity
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrReceiptUpload accompanies a created expense whose receipt failed to upload
	ErrReceiptUpload = errors.New("expense created but receipt upload failed")
)

// Message maps an error to the text a view shows for it. nil maps to "".
func Message(err error) string {
	return describe(err, MsgAccessDenied)
}

// describe is Message with a view-specific text for 403 answers
func describe(err error, forbidden string) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, session.ErrAuthentication):
		return MsgLoginFailed
	case errors.Is(err, ErrNotAuthenticated):
		return MsgAuthRequired
	case errors.Is(err, ErrNotPermitted):
		return MsgNotPermitted
	case errors.Is(err, ErrReceiptUpload):
		return MsgReceiptUploadFailed
	case errors.Is(err, validation.ErrReceiptTooLarge):
		return MsgReceiptTooLarge
	case errors.Is(err, validation.ErrReceiptType):
		return MsgReceiptType
	case errors.Is(err, backend.ErrApprovalNotFound):
		return MsgApprovalNotFound
	case errors.Is(err, apiclient.ErrRateLimited):
		return MsgRateLimited
	case apiclient.IsTransport(err):
		return MsgNetwork
	}

	if fields := validation.FieldErrors(err); len(fields) > 0 {
		return "Validation error: " + validation.JoinFieldErrors(fields)
	}

	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		return MsgUnexpected
	}

	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return MsgAuthRequired
	case http.StatusForbidden:
		return forbidden
	case http.StatusBadRequest:
		if len(apiErr.FieldErrors) > 0 {
			return "Validation error: " + apiErr.FieldMessages()
		}
		return MsgInvalidData
	default:
		return fmt.Sprintf("Server error: %d. Please try again later.", apiErr.StatusCode)
	}
}
