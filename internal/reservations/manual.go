package reservations

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
)

// OperatorRequest builds the payment-request message a buyer forwards to the
// venue operator, and a chat deep link that pre-fills it.
func OperatorRequest(chatBaseURL, operatorPhone, currency string, buyer *models.User, reservation *models.Reservation, eventTable *models.EventTable, products map[string]string) (message, link string) {
	var b strings.Builder
	b.WriteString("Hello,\n\nI would like to complete payment for this reservation:\n\n")
	fmt.Fprintf(&b, "*Reservation ID:* %s\n", reservation.ID)
	if buyer != nil {
		fmt.Fprintf(&b, "*Name:* %s\n", buyer.Name)
	}
	if eventTable != nil && eventTable.Event != nil {
		fmt.Fprintf(&b, "*Event:* %s (%s)\n", eventTable.Event.Name, eventTable.Event.StartsAt.Format("2006-01-02 15:04"))
	}
	if eventTable != nil && eventTable.Table != nil {
		fmt.Fprintf(&b, "*Table:* %s\n", eventTable.Table.Name)
	}
	fmt.Fprintf(&b, "*Guests:* %d\n\n*Add-ons:*\n", reservation.GuestCount)
	if len(reservation.OrderItems) == 0 {
		b.WriteString("None\n")
	}
	for _, item := range reservation.OrderItems {
		name := products[item.ProductID.String()]
		if name == "" {
			name = item.ProductID.String()
		}
		fmt.Fprintf(&b, "- %dx %s (%s)\n", item.Quantity, name, formatMoney(currency, item.Subtotal))
	}
	fmt.Fprintf(&b, "\n*Total: %s*\n\nPlease let me know how to transfer. Thank you.", formatMoney(currency, reservation.TotalAmount))

	message = b.String()
	phone := strings.TrimLeft(strings.TrimSpace(operatorPhone), "+")
	link = fmt.Sprintf("%s/%s?text=%s", strings.TrimRight(chatBaseURL, "/"), phone, strings.ReplaceAll(url.QueryEscape(message), "+", "%20"))
	return message, link
}

func formatMoney(currency string, amount decimal.Decimal) string {
	return strings.TrimSpace(currency + " " + amount.StringFixedBank(2))
}
