package consumers

import (
	"context"
	"testing"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	calls []string
	err   error
}

func (f *fakeRenderer) RenderRequestPDF(_ context.Context, id string) (*domain.Quotation, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	url := "https://files.test/quotations/" + id + ".pdf"
	return &domain.Quotation{ID: id, PDFURL: &url}, nil
}

func TestQuotationConsumer_RendersRequestedQuotation(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"rendered", nil, false},
		{"already decided", errors.StateConflict("quotation is no longer pending"), false},
		{"deleted", errors.NotFound("quotation"), false},
		{"storage down", errors.Internal("write failed"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := &fakeRenderer{err: tt.err}
			bus := messaging.NewLocalBus("test", logger.NewNop())
			NewQuotationConsumer(renderer, logger.NewNop()).Register(bus)

			err := bus.Publish(context.Background(), messaging.EventQuotationRequested, messaging.QuotationRequestedEvent{
				QuotationID: "q1", OrderID: "o1", SupplierID: "s1",
			})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.Equal(t, []string{"q1"}, renderer.calls)
		})
	}
}

func TestQuotationConsumer_StartWithoutBroker(t *testing.T) {
	err := NewQuotationConsumer(&fakeRenderer{}, logger.NewNop()).Start(context.Background())
	assert.True(t, errors.Is(err, errors.ErrInternal))
}
