package models

// Response envelopes, shared across handlers

type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

type AdjustmentResponse struct {
	Success bool             `json:"success"`
	Data    *StockAdjustment `json:"data,omitempty"`
	Message *string          `json:"message,omitempty"`
}

type AdjustmentListResponse struct {
	Success    bool              `json:"success"`
	Data       []StockAdjustment `json:"data"`
	Pagination *PaginationMeta   `json:"pagination,omitempty"`
}

type CycleCountCounterResponse struct {
	Success bool                   `json:"success"`
	Data    *CycleCountCounterView `json:"data,omitempty"`
	Message *string                `json:"message,omitempty"`
}

type CycleCountReviewerResponse struct {
	Success bool               `json:"success"`
	Data    *CycleCountSession `json:"data,omitempty"`
	Message *string            `json:"message,omitempty"`
}

type CycleCountListResponse struct {
	Success    bool                    `json:"success"`
	Data       []CycleCountCounterView `json:"data"`
	Pagination *PaginationMeta         `json:"pagination,omitempty"`
}

type VarianceReportResponse struct {
	Success bool            `json:"success"`
	Data    *VarianceReport `json:"data,omitempty"`
}

type TransferResponse struct {
	Success bool             `json:"success"`
	Data    *TransferRequest `json:"data,omitempty"`
	Message *string          `json:"message,omitempty"`
}

type TransferListResponse struct {
	Success    bool              `json:"success"`
	Data       []TransferRequest `json:"data"`
	Pagination *PaginationMeta   `json:"pagination,omitempty"`
}

type StockLevelResponse struct {
	Success bool        `json:"success"`
	Data    *StockLevel `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

type StockLevelListResponse struct {
	Success    bool            `json:"success"`
	Data       []StockLevel    `json:"data"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

type MovementListResponse struct {
	Success    bool             `json:"success"`
	Data       []MovementRecord `json:"data"`
	Pagination *PaginationMeta  `json:"pagination,omitempty"`
}

type LocationListResponse struct {
	Success bool       `json:"success"`
	Data    []Location `json:"data"`
}
