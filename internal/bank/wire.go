package bank

// JSON shapes shared by the bank HTTP API and HTTPClient.

type OperationRequest struct {
	AccountNumber string `json:"accountNumber"`
	Amount        string `json:"amount,omitempty"`
}

type OperationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Amount  string `json:"amount,omitempty"`
}

type SummaryResponse struct {
	AccountNumber string `json:"accountNumber"`
	Paid          string `json:"loanPaid"`
	Remaining     string `json:"loanRemaining"`
	Total         string `json:"totalLoan"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
