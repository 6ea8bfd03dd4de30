// Package pricing derives reservation totals from locked catalog prices.
package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
)

// Line is one product line priced at the value read under lock.
type Line struct {
	ProductID uuid.UUID
	UnitPrice decimal.Decimal
	Quantity  int
}

// PricedLine carries the snapshot subtotal persisted on the order item.
type PricedLine struct {
	Line
	Subtotal decimal.Decimal
}

// Quote is the full breakdown for a reservation.
type Quote struct {
	TablePrice decimal.Decimal
	Lines      []PricedLine
	Total      decimal.Decimal
}

// ComputeTotal prices every line as unit price × quantity and adds the table price.
func ComputeTotal(tablePrice decimal.Decimal, lines []Line) (Quote, error) {
	if tablePrice.IsNegative() {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "table price must not be negative")
	}
	quote := Quote{
		TablePrice: tablePrice,
		Lines:      make([]PricedLine, 0, len(lines)),
		Total:      tablePrice,
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
		}
		subtotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		quote.Lines = append(quote.Lines, PricedLine{Line: line, Subtotal: subtotal})
		quote.Total = quote.Total.Add(subtotal)
	}
	return quote, nil
}

// Rederive recomputes a reservation total from its persisted order items.
func Rederive(tablePrice decimal.Decimal, items []models.OrderItem) decimal.Decimal {
	total := tablePrice
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total
}

// Consistent reports whether the stored total matches its order items.
func Consistent(reservation models.Reservation) bool {
	return Rederive(reservation.TablePrice, reservation.OrderItems).Equal(reservation.TotalAmount)
}
