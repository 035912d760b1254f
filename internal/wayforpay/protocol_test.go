package wayforpay

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testSecret = "flk3409refn54t54t*FNJRET"

func testMerchant() *Merchant {
	return NewMerchant("test_merch_n1", "sviy.com.ua", testSecret, "", "")
}

func approvedCallback() *Callback {
	return &Callback{
		MerchantAccount:   "test_merch_n1",
		OrderReference:    "SVIY-123",
		Amount:            json.Number("200"),
		Currency:          "UAH",
		AuthCode:          "541963",
		CardPan:           "41****8217",
		TransactionStatus: StatusApproved,
		ReasonCode:        json.Number("1100"),
	}
}

func TestSignKnownVector(t *testing.T) {
	s := NewSigner(testSecret)
	got := s.Sign("test_merch_n1", "SVIY-123", "200", "UAH", "541963", "41****8217", "Approved", "1100")
	require.Equal(t, "2c1ca7764e118efbdd6e8dd38cecda93", got)
}

func TestVerifyCallback(t *testing.T) {
	m := testMerchant()
	tests := []struct {
		name    string
		mutate  func(cb *Callback)
		wantErr bool
	}{
		{"valid", func(cb *Callback) {}, false},
		{"uppercase signature", func(cb *Callback) { cb.MerchantSignature = "2C1CA7764E118EFBDD6E8DD38CECDA93" }, false},
		{"tampered amount", func(cb *Callback) { cb.Amount = json.Number("2000") }, true},
		{"tampered order", func(cb *Callback) { cb.OrderReference = "SVIY-124" }, true},
		{"tampered status", func(cb *Callback) { cb.TransactionStatus = StatusDeclined }, true},
		{"other merchant", func(cb *Callback) { cb.MerchantAccount = "intruder" }, true},
		{"missing signature", func(cb *Callback) { cb.MerchantSignature = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := approvedCallback()
			cb.MerchantSignature = "2c1ca7764e118efbdd6e8dd38cecda93"
			tt.mutate(cb)
			err := m.VerifyCallback(cb)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidSignature)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestVerifyWithoutSecretAlwaysFails(t *testing.T) {
	m := NewMerchant("test_merch_n1", "sviy.com.ua", "", "", "")
	cb := approvedCallback()
	m.SignCallback(cb)
	require.ErrorIs(t, m.VerifyCallback(cb), ErrInvalidSignature)
}

func TestAcknowledge(t *testing.T) {
	ack := testMerchant().Acknowledge("SVIY-123", time.Unix(1700000000, 0))
	require.Equal(t, "accept", ack.Status)
	require.Equal(t, int64(1700000000), ack.Time)
	require.Equal(t, "d444414457d968fe03af7f45fb9bc0fe", ack.Signature)
}

func TestPurchaseForm(t *testing.T) {
	form := testMerchant().PurchaseForm(PurchaseRequest{
		OrderReference: "SVIY-1700000000-ab12cd34",
		OrderDate:      time.Unix(1700000000, 0),
		Amount:         decimal.NewFromInt(150),
		Currency:       "UAH",
		ProductName:    "Поповнення балансу UCM",
	})
	require.Equal(t, "150.00", form.Amount)
	require.Equal(t, []string{"150.00"}, form.ProductPrice)
	require.Equal(t, "abec1b2881dd46ae7a2ea47f6f6e155b", form.MerchantSignature)
}

func TestParseCallback(t *testing.T) {
	raw, err := json.Marshal(approvedCallback())
	require.NoError(t, err)

	cb, err := ParseCallback(raw)
	require.NoError(t, err)
	require.Equal(t, "SVIY-123", cb.OrderReference)
	amount, err := cb.AmountDecimal()
	require.NoError(t, err)
	require.Equal(t, "200", amount.String())

	formEncoded := url.QueryEscape(string(raw))
	cb, err = ParseCallback([]byte(formEncoded))
	require.NoError(t, err)
	require.Equal(t, "1100", cb.ReasonCode.String())

	for _, bad := range []string{"", "garbage", "{}", `{"orderReference":`} {
		_, err := ParseCallback([]byte(bad))
		require.ErrorIs(t, err, ErrMalformedCallback, "input=%q", bad)
	}
}
