package domain

// DeriveStatus folds the item state of an order into its status.
//
//	PENDING             every item has nothing returned
//	PARTIALLY_RETURNED  something was returned but not everything
//	RETURNED            every item is fully returned
//
// Returned quantities never decrease, so the derived status only moves forward.
func DeriveStatus(items []OrderItem) OrderStatus {
	if len(items) == 0 {
		return OrderStatusPending
	}

	anyReturned := false
	allReturned := true
	for _, it := range items {
		if it.ReturnedQuantity > 0 {
			anyReturned = true
		}
		if it.ReturnedQuantity < it.TotalQuantity {
			allReturned = false
		}
	}

	switch {
	case allReturned:
		return OrderStatusReturned
	case anyReturned:
		return OrderStatusPartiallyReturned
	default:
		return OrderStatusPending
	}
}

// statusRank orders statuses along the only permitted direction of travel.
func statusRank(s OrderStatus) int {
	switch s {
	case OrderStatusPartiallyReturned:
		return 1
	case OrderStatusReturned:
		return 2
	default:
		return 0
	}
}

// CanTransition reports whether moving from one status to another is allowed.
// Staying in place is allowed; going backwards never is.
func CanTransition(from, to OrderStatus) bool {
	return statusRank(to) >= statusRank(from)
}
