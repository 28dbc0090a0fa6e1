package db

import "github.com/jackc/pgx/v5"

// scanOrders drains rows of the shared orders projection used by the list queries.
func scanOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var items []Order
	for rows.Next() {
		var i Order
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Status,
			&i.PaymentMethod,
			&i.OrderDate,
			&i.Version,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
