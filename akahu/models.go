package akahu

import "time"

// AccountType is the simplified account classification shown to the user.
type AccountType string

const (
	AccountChecking AccountType = "checking"
	AccountSavings  AccountType = "savings"
	AccountCredit   AccountType = "credit"
)

// TransactionType tells money in from money out.
type TransactionType string

const (
	TransactionDebit  TransactionType = "debit"
	TransactionCredit TransactionType = "credit"
)

// User is the owner of the connected credential.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email,omitempty"`
	PreferredName string `json:"preferredName,omitempty"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
}

// Account is a bank account in the app's own shape.
type Account struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Bank          string      `json:"bank"`
	AccountNumber string      `json:"accountNumber"`
	Balance       float64     `json:"balance"`
	Type          AccountType `json:"type"`
}

// Transaction is a single account movement. Amount is always non-negative;
// Type carries the direction.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
	Type        TransactionType `json:"type"`
}

// Wire shapes returned by the API.

type meResponse struct {
	Item struct {
		ID            string `json:"_id"`
		Email         string `json:"email"`
		PreferredName string `json:"preferred_name"`
		FirstName     string `json:"first_name"`
		LastName      string `json:"last_name"`
	} `json:"item"`
}

type accountItem struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Formatted  string `json:"formatted_account"`
	Connection struct {
		Name string `json:"name"`
	} `json:"connection"`
	Balance *struct {
		Current float64 `json:"current"`
	} `json:"balance"`
}

type accountsResponse struct {
	Items []accountItem `json:"items"`
}

type transactionItem struct {
	ID          string    `json:"_id"`
	Account     string    `json:"_account"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Merchant    *struct {
		Name string `json:"name"`
	} `json:"merchant"`
	Category *struct {
		Groups struct {
			PersonalFinance *struct {
				Primary string `json:"primary"`
			} `json:"personal_finance"`
		} `json:"groups"`
	} `json:"category"`
}

type transactionsResponse struct {
	Items []transactionItem `json:"items"`
}

func (a accountItem) toAccount() Account {
	acc := Account{
		ID:            a.ID,
		Name:          a.Name,
		Bank:          a.Connection.Name,
		AccountNumber: a.Formatted,
		Type:          AccountChecking,
	}
	if a.Balance != nil {
		acc.Balance = a.Balance.Current
	}
	switch a.Type {
	case "CREDIT_CARD":
		acc.Type = AccountCredit
	case "SAVINGS":
		acc.Type = AccountSavings
	}
	return acc
}

func (t transactionItem) toTransaction() Transaction {
	tx := Transaction{
		ID:          t.ID,
		AccountID:   t.Account,
		Amount:      t.Amount,
		Description: t.Description,
		Category:    "Other",
		Date:        t.Date,
		Type:        TransactionCredit,
	}
	if t.Amount < 0 {
		tx.Amount = -t.Amount
		tx.Type = TransactionDebit
	}
	if tx.Description == "" {
		tx.Description = "Unknown"
		if t.Merchant != nil && t.Merchant.Name != "" {
			tx.Description = t.Merchant.Name
		}
	}
	if t.Category != nil && t.Category.Groups.PersonalFinance != nil && t.Category.Groups.PersonalFinance.Primary != "" {
		tx.Category = t.Category.Groups.PersonalFinance.Primary
	}
	return tx
}
