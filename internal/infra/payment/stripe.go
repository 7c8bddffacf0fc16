package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/charge"
	"github.com/stripe/stripe-go/v79/customer"
)

// Stripeをusecase.PaymentGatewayに合わせて薄く包む。
// リトライ判断やエラー種別の解釈はusecase側の仕事。
type StripeGateway struct{}

func NewStripeGateway(apiKey string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email string, cardToken string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.Source = stripe.String(cardToken)

	c, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (g *StripeGateway) CreateCharge(ctx context.Context, amountMinorUnits int64, currency string, customerID string) (string, error) {
	params := &stripe.ChargeParams{
		Amount:   stripe.Int64(amountMinorUnits),
		Currency: stripe.String(currency),
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	//ネットワーク再送で二重課金しないよう試行ごとにキーを付ける
	params.SetIdempotencyKey(uuid.NewString())

	ch, err := charge.New(params)
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (g *StripeGateway) UpdateCustomerSource(ctx context.Context, customerID string, cardToken string) error {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.Source = stripe.String(cardToken)

	_, err := customer.Update(customerID, params)
	return err
}
