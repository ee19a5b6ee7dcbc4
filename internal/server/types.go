package server

import (
	"github.com/rezonia/fattura-renderer/internal/model"
	"github.com/rezonia/fattura-renderer/internal/render"
)

// ExtractResponse is the response for the extract endpoint
type ExtractResponse struct {
	Invoice  *model.Invoice           `json:"invoice"`
	Warnings []model.ToleranceWarning `json:"warnings,omitempty"`
}

// RenderResponse is the response for the render endpoint
type RenderResponse struct {
	Pages     []render.Page            `json:"pages"`
	Fallbacks []model.RenderFallback   `json:"fallbacks,omitempty"`
	Warnings  []model.ToleranceWarning `json:"warnings,omitempty"`
}

// ValidationResponse is the response for validate endpoint
type ValidationResponse struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// InfoResponse is the response for info endpoint
type InfoResponse struct {
	Format       string `json:"format"`
	Size         int    `json:"size"`
	Root         string `json:"root,omitempty"`
	Invoice      bool   `json:"invoice"`
	Installments int    `json:"installments,omitempty"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Code  string `json:"code,omitempty"`
}
