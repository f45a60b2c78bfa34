package redis

import "fmt"

// Key pattern: blackjack:{namespace}:{entity}:{id}

func tableKey(ns, tableID string) string {
	return fmt.Sprintf("blackjack:%s:table:%s", ns, tableID)
}

func openTablesKey(ns string) string {
	return fmt.Sprintf("blackjack:%s:open_tables", ns)
}

func roundKey(ns, roundID string) string {
	return fmt.Sprintf("blackjack:%s:round:%s", ns, roundID)
}

func openRoundsKey(ns string) string {
	return fmt.Sprintf("blackjack:%s:open_rounds", ns)
}

func tableOpenRoundsKey(ns, tableID string) string {
	return fmt.Sprintf("blackjack:%s:table:%s:open_rounds", ns, tableID)
}

func betsKey(ns, roundID string) string {
	return fmt.Sprintf("blackjack:%s:round:%s:bets", ns, roundID)
}

func handsKey(ns, roundID string) string {
	return fmt.Sprintf("blackjack:%s:round:%s:hands", ns, roundID)
}

func settlementsKey(ns, roundID string) string {
	return fmt.Sprintf("blackjack:%s:round:%s:settlements", ns, roundID)
}

// EventsChannel is the pub/sub channel carrying a table's audit events.
func EventsChannel(ns, tableID string) string {
	return fmt.Sprintf("blackjack:%s:table:%s:events", ns, tableID)
}

func handField(seatID, handIndex int) string {
	return fmt.Sprintf("%d:%d", seatID, handIndex)
}

func betField(seatID, handIndex int, kind string) string {
	return fmt.Sprintf("%d:%d:%s", seatID, handIndex, kind)
}
