package service

import (
	"strings"

	"crypto-donation-tracker/internal/domain/entity"
)

// TabAll selects every asset in the tracker table
const TabAll = "all"

// FilterTransactions returns at most limit entries of list matching tab.
// tab is "all" or an asset symbol in any case. list is never modified.
func FilterTransactions(list []entity.Transaction, tab string, limit int) []entity.Transaction {
	if limit <= 0 {
		return []entity.Transaction{}
	}
	rows := make([]entity.Transaction, 0, limit)

	tab = strings.TrimSpace(tab)
	all := tab == "" || strings.EqualFold(tab, TabAll)
	for _, tx := range list {
		if !all && !strings.EqualFold(string(tx.Type), tab) {
			continue
		}
		rows = append(rows, tx)
		if len(rows) == limit {
			break
		}
	}
	return rows
}

// TruncateHash keeps the first n characters of a hash followed by "..."
func TruncateHash(hash string, n int) string {
	if n <= 0 || len(hash) <= n {
		return hash + "..."
	}
	return hash[:n] + "..."
}
