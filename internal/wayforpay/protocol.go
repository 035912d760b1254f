package wayforpay

import (
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PayURL       = "https://secure.wayforpay.com/pay"
	ProviderName = "wayforpay"
)

// Transaction statuses reported in callbacks.
const (
	StatusApproved            = "Approved"
	StatusDeclined            = "Declined"
	StatusExpired             = "Expired"
	StatusPending             = "Pending"
	StatusInProcessing        = "InProcessing"
	StatusWaitingAuthComplete = "WaitingAuthComplete"
	StatusRefunded            = "Refunded"
	StatusVoided              = "Voided"
)

var ErrMalformedCallback = errors.New("malformed_callback")

type Merchant struct {
	Account    string
	Domain     string
	ReturnURL  string
	ServiceURL string
	signer     Signer
}

func NewMerchant(account, domain, secret, returnURL, serviceURL string) *Merchant {
	return &Merchant{
		Account:    account,
		Domain:     domain,
		ReturnURL:  returnURL,
		ServiceURL: serviceURL,
		signer:     NewSigner(secret),
	}
}

type PurchaseRequest struct {
	OrderReference string
	OrderDate      time.Time
	Amount         decimal.Decimal
	Currency       string
	ProductName    string
}

// PurchaseForm is posted by the browser to PayURL.
type PurchaseForm struct {
	MerchantAccount    string   `json:"merchantAccount"`
	MerchantAuthType   string   `json:"merchantAuthType"`
	MerchantDomainName string   `json:"merchantDomainName"`
	MerchantSignature  string   `json:"merchantSignature"`
	OrderReference     string   `json:"orderReference"`
	OrderDate          int64    `json:"orderDate"`
	Amount             string   `json:"amount"`
	Currency           string   `json:"currency"`
	ProductName        []string `json:"productName"`
	ProductCount       []int    `json:"productCount"`
	ProductPrice       []string `json:"productPrice"`
	ReturnURL          string   `json:"returnUrl,omitempty"`
	ServiceURL         string   `json:"serviceUrl,omitempty"`
	Language           string   `json:"language"`
}

func (m *Merchant) PurchaseForm(req PurchaseRequest) PurchaseForm {
	amount := req.Amount.StringFixed(2)
	form := PurchaseForm{
		MerchantAccount:    m.Account,
		MerchantAuthType:   "SimpleSignature",
		MerchantDomainName: m.Domain,
		OrderReference:     req.OrderReference,
		OrderDate:          req.OrderDate.Unix(),
		Amount:             amount,
		Currency:           req.Currency,
		ProductName:        []string{req.ProductName},
		ProductCount:       []int{1},
		ProductPrice:       []string{amount},
		ReturnURL:          m.ReturnURL,
		ServiceURL:         m.ServiceURL,
		Language:           "UA",
	}
	fields := []string{form.MerchantAccount, form.MerchantDomainName, form.OrderReference,
		strconv.FormatInt(form.OrderDate, 10), form.Amount, form.Currency}
	fields = append(fields, form.ProductName...)
	for _, c := range form.ProductCount {
		fields = append(fields, strconv.Itoa(c))
	}
	fields = append(fields, form.ProductPrice...)
	form.MerchantSignature = m.signer.Sign(fields...)
	return form
}

// Callback is the serviceUrl notification body. Numeric fields are kept as
// json.Number so the signature is computed over the provider's own text.
type Callback struct {
	MerchantAccount   string      `json:"merchantAccount"`
	OrderReference    string      `json:"orderReference"`
	MerchantSignature string      `json:"merchantSignature"`
	Amount            json.Number `json:"amount"`
	Currency          string      `json:"currency"`
	AuthCode          string      `json:"authCode"`
	Email             string      `json:"email,omitempty"`
	Phone             string      `json:"phone,omitempty"`
	CreatedDate       int64       `json:"createdDate,omitempty"`
	ProcessingDate    int64       `json:"processingDate,omitempty"`
	CardPan           string      `json:"cardPan"`
	CardType          string      `json:"cardType,omitempty"`
	IssuerBankName    string      `json:"issuerBankName,omitempty"`
	TransactionStatus string      `json:"transactionStatus"`
	Reason            string      `json:"reason,omitempty"`
	ReasonCode        json.Number `json:"reasonCode"`
	Fee               json.Number `json:"fee,omitempty"`
	PaymentSystem     string      `json:"paymentSystem,omitempty"`
}

func (c *Callback) SignatureFields() []string {
	return []string{
		c.MerchantAccount,
		c.OrderReference,
		c.Amount.String(),
		c.Currency,
		c.AuthCode,
		c.CardPan,
		c.TransactionStatus,
		c.ReasonCode.String(),
	}
}

func (c *Callback) AmountDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(c.Amount.String())
}

// ParseCallback accepts a JSON body and the variant where the JSON document
// arrives form-encoded as the only key.
func ParseCallback(raw []byte) (*Callback, error) {
	body := strings.TrimSpace(string(raw))
	if body == "" {
		return nil, ErrMalformedCallback
	}
	if !strings.HasPrefix(body, "{") {
		values, err := url.ParseQuery(body)
		if err != nil {
			return nil, ErrMalformedCallback
		}
		body = ""
		for k, v := range values {
			if strings.HasPrefix(strings.TrimSpace(k), "{") {
				body = k
				if len(v) > 0 && v[0] != "" {
					body = k + "=" + v[0]
				}
				break
			}
		}
		if body == "" {
			return nil, ErrMalformedCallback
		}
	}
	var cb Callback
	if err := json.Unmarshal([]byte(body), &cb); err != nil {
		return nil, ErrMalformedCallback
	}
	if cb.OrderReference == "" {
		return nil, ErrMalformedCallback
	}
	return &cb, nil
}

func (m *Merchant) VerifyCallback(cb *Callback) error {
	if cb.MerchantAccount != m.Account {
		return ErrInvalidSignature
	}
	return m.signer.Verify(cb.MerchantSignature, cb.SignatureFields()...)
}

// Ack is returned to the provider; status "accept" stops its retry loop.
type Ack struct {
	OrderReference string `json:"orderReference"`
	Status         string `json:"status"`
	Time           int64  `json:"time"`
	Signature      string `json:"signature"`
}

func (m *Merchant) Acknowledge(orderReference string, now time.Time) Ack {
	ts := now.Unix()
	return Ack{
		OrderReference: orderReference,
		Status:         "accept",
		Time:           ts,
		Signature:      m.signer.Sign(orderReference, "accept", strconv.FormatInt(ts, 10)),
	}
}

// SignCallback fills MerchantSignature; used to build test fixtures and by
// the sandbox tooling.
func (m *Merchant) SignCallback(cb *Callback) {
	cb.MerchantSignature = m.signer.Sign(cb.SignatureFields()...)
}
