package testutil

// Reference and candidate queries shared by the comparison and metrics tests.
const (
	SimpleReference         = "SELECT name FROM users WHERE age > 18"
	SimpleExactMatch        = "SELECT name FROM users WHERE age > 18"
	SimpleLogicalEquivalent = "SELECT name FROM users WHERE age > 18 ORDER BY name"
	SimpleIncorrect         = "SELECT email FROM users WHERE age > 21"
)

// ComplexReference aggregates customer spend over the last year.
const ComplexReference = `
SELECT
    c.name AS customer_name,
    SUM(o.total_amount) AS total_spent,
    COUNT(o.id) AS order_count,
    AVG(o.total_amount) AS avg_order_value
FROM
    customers c
JOIN
    orders o ON c.id = o.customer_id
WHERE
    o.order_date >= CURRENT_DATE - INTERVAL '1 year'
GROUP BY
    c.id, c.name
HAVING
    SUM(o.total_amount) > 1000
ORDER BY
    total_spent DESC
LIMIT 10
`

// ComplexLogicalEquivalent is ComplexReference without table aliases.
const ComplexLogicalEquivalent = `
SELECT
    customers.name AS customer_name,
    SUM(orders.total_amount) AS total_spent,
    COUNT(orders.id) AS order_count,
    AVG(orders.total_amount) AS avg_order_value
FROM
    customers
JOIN
    orders ON customers.id = orders.customer_id
WHERE
    orders.order_date >= CURRENT_DATE - INTERVAL '1 year'
GROUP BY
    customers.id, customers.name
HAVING
    SUM(orders.total_amount) > 1000
ORDER BY
    total_spent DESC
LIMIT 10
`

// ComplexIncorrect changes the interval, drops two aggregates and the
// HAVING clause, and uses a different LIMIT.
const ComplexIncorrect = `
SELECT
    c.name AS customer_name,
    SUM(o.total_amount) AS total_spent
FROM
    customers c
JOIN
    orders o ON c.id = o.customer_id
WHERE
    o.order_date >= CURRENT_DATE - INTERVAL '6 months'
GROUP BY
    c.id, c.name
ORDER BY
    total_spent DESC
LIMIT 5
`

// Schema is a plain-text schema description for zero-shot scoring.
const Schema = `
Table: customers
Columns: id (int), name (varchar), email (varchar), age (int)

Table: orders
Columns: id (int), customer_id (int), order_date (date), total_amount (decimal)

Foreign Keys:
orders.customer_id -> customers.id
`
