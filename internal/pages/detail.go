// internal/pages/detail.go
package pages

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/KCumlee/Job-assignments/internal/browser"
	"github.com/KCumlee/Job-assignments/internal/config"
)

// ContactInfo is what the lead form asks for.
type ContactInfo struct {
	FirstName string
	LastName  string
	Email     string
}

// DetailPage is the vehicle detail page of one listing.
type DetailPage struct {
	base
	sel config.DetailSelectors
}

var _ Page = (*DetailPage)(nil)

// NewDetailPage binds the vehicle detail page to env's session.
func NewDetailPage(env Env) *DetailPage {
	return &DetailPage{
		base: newBase(env, env.Site.DetailURL, "detail"),
		sel:  env.Site.Detail,
	}
}

// Title returns the document title.
func (p *DetailPage) Title(ctx context.Context) (string, error) {
	title, err := p.driver.Title(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read detail page title: %w", err)
	}
	return title, nil
}

// CheckAvailabilityButton waits for the lead form's submit button. Its presence also
// marks the detail page as loaded.
func (p *DetailPage) CheckAvailabilityButton(ctx context.Context) (browser.Element, error) {
	return p.locator.Locate(ctx, p.sel.CheckAvailability)
}

// InputContactInfo fills the lead form. Fields already holding text are overwritten.
// The form is not submitted.
func (p *DetailPage) InputContactInfo(ctx context.Context, info ContactInfo) error {
	fields := []struct {
		name  string
		query browser.Query
		value string
	}{
		{"first name", p.sel.FirstName, info.FirstName},
		{"last name", p.sel.LastName, info.LastName},
		{"email", p.sel.Email, info.Email},
	}
	for _, f := range fields {
		if err := p.typeInto(ctx, f.query, f.value); err != nil {
			return fmt.Errorf("failed to enter %s: %w", f.name, err)
		}
	}
	p.logger.Debug("Contact info entered.", zap.String("email", info.Email))
	return nil
}

// PaymentCalculator waits for the payment calculator widget.
func (p *DetailPage) PaymentCalculator(ctx context.Context) (browser.Element, error) {
	return p.locator.Locate(ctx, p.sel.PaymentCalculator)
}

// HoverPaymentCalculator moves the pointer over the payment calculator, which expands it.
func (p *DetailPage) HoverPaymentCalculator(ctx context.Context) error {
	err := p.withElement(ctx, p.sel.PaymentCalculator, func(el browser.Element) error {
		return el.Hover(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to hover payment calculator: %w", err)
	}
	return nil
}
