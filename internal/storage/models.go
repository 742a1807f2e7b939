package storage

type Client struct {
	Code               string
	Name               string
	Phone              string
	TaxID              string
	Secret             string
	CaseType           string
	ContractedFeeCents int64
	CaseSummary        string
	RegisteredOn       string
}

type Installment struct {
	ClientCode     string
	Number         int64
	AmountCents    int64
	DueDate        string
	PaymentDate    string
	PaymentMethod  string
	DepositAccount string
	Paid           int64
}

type InstallmentWithClient struct {
	Installment
	ClientName string
}
