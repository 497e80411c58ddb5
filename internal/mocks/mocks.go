// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/KCumlee/Job-assignments/internal/browser"
)

// -- Driver Mock --

// MockDriver mocks browser.Driver.
type MockDriver struct {
	mock.Mock
}

var _ browser.Driver = (*MockDriver)(nil)

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockDriver) Reload(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDriver) CurrentURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) Title(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) FindElements(ctx context.Context, q browser.Query) ([]browser.Element, error) {
	args := m.Called(ctx, q)
	var elems []browser.Element
	if v := args.Get(0); v != nil {
		elems = v.([]browser.Element)
	}
	return elems, args.Error(1)
}

func (m *MockDriver) Screenshot(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *MockDriver) SetWindowSize(ctx context.Context, width, height int) error {
	args := m.Called(ctx, width, height)
	return args.Error(0)
}

func (m *MockDriver) Maximize(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDriver) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// -- Element Mock --

// MockElement mocks browser.Element.
type MockElement struct {
	mock.Mock
}

var _ browser.Element = (*MockElement)(nil)

func (m *MockElement) Text(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockElement) Displayed(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockElement) SendKeys(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

func (m *MockElement) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockElement) Click(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockElement) Hover(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockElement) SelectByValue(ctx context.Context, value string) error {
	args := m.Called(ctx, value)
	return args.Error(0)
}

// Elements is a convenience for building FindElements return values.
func Elements(elems ...browser.Element) []browser.Element {
	return elems
}
