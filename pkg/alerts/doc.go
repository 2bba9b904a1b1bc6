// Package alerts evaluates standing alert rules against stock levels and
// dispatches notifications when a rule's condition holds.
//
// Rules are owned by users and scoped by location and category. Three kinds
// are evaluated: low_stock (quantity at or under a per-rule threshold),
// out_of_stock (quantity at zero), and expiration_warning (shelf life inside
// a per-rule horizon). system_alert rules are valid but never fired by the
// evaluator; they describe direct announcements.
//
// Every fired alert passes two suppression gates. A per-pass seen set caps
// dispatches at one per (rule, item, location). A cooldown consults the most
// recent matching notification and suppresses repeats inside the kind's
// window, 24h for low stock and expiration, 12h for out of stock.
//
// Scheduled passes run EvaluateStock and EvaluateExpirations; the live and
// offline stock-change paths call EvaluateItem for immediate threshold
// checks on the touched item.
package alerts
