package sqlstore

// tables in delete order (children first).
var tables = []string{
	"profit_details",
	"balance_snapshots",
	"pay_profits",
	"beneficiaries",
	"beneficiary_contacts",
	"members",
	"vesting_breakpoints",
	"vesting_schedules",
}

const sqliteSchema = `
	-- Ledger entries (append-only)
	CREATE TABLE IF NOT EXISTS profit_details (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ssn INTEGER NOT NULL,
		profit_year INTEGER NOT NULL,
		profit_code INTEGER NOT NULL,
		contribution TEXT NOT NULL DEFAULT '0',
		earnings TEXT NOT NULL DEFAULT '0',
		forfeiture TEXT NOT NULL DEFAULT '0',
		federal_taxes TEXT NOT NULL DEFAULT '0',
		state_taxes TEXT NOT NULL DEFAULT '0',
		month_to_date INTEGER NOT NULL DEFAULT 0,
		year_to_date INTEGER NOT NULL DEFAULT 0,
		comment_type INTEGER NOT NULL DEFAULT 0,
		remark TEXT NOT NULL DEFAULT '',
		comment_related_oracle_hcm_id INTEGER NOT NULL DEFAULT 0,
		comment_related_psn_suffix INTEGER,
		reversed_from_id INTEGER REFERENCES profit_details(id),
		idempotency_key TEXT UNIQUE,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_profit_details_ssn_year
		ON profit_details(ssn, profit_year);

	CREATE TABLE IF NOT EXISTS balance_snapshots (
		ssn INTEGER NOT NULL,
		profit_year INTEGER NOT NULL,
		total TEXT NOT NULL,
		PRIMARY KEY (ssn, profit_year)
	);

	CREATE TABLE IF NOT EXISTS members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		oracle_hcm_id INTEGER NOT NULL DEFAULT 0,
		ssn INTEGER NOT NULL,
		badge_number INTEGER NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		date_of_birth TIMESTAMP,
		termination_code TEXT NOT NULL DEFAULT '',
		termination_date TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_members_ssn ON members(ssn);

	-- Per member-year rows; version is the optimistic concurrency stamp
	CREATE TABLE IF NOT EXISTS pay_profits (
		member_id INTEGER NOT NULL REFERENCES members(id),
		profit_year INTEGER NOT NULL,
		etva TEXT NOT NULL DEFAULT '0',
		current_hours_year TEXT NOT NULL DEFAULT '0',
		current_income_year TEXT NOT NULL DEFAULT '0',
		years_in_plan INTEGER NOT NULL DEFAULT 0,
		vesting_schedule_id INTEGER NOT NULL DEFAULT 0,
		enrollment_id INTEGER NOT NULL DEFAULT 0,
		zero_contribution_reason INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL,
		PRIMARY KEY (member_id, profit_year)
	);

	CREATE TABLE IF NOT EXISTS beneficiary_contacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ssn INTEGER NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		middle_name TEXT NOT NULL DEFAULT '',
		date_of_birth TIMESTAMP,
		street TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS beneficiaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		badge_number INTEGER NOT NULL,
		psn_suffix INTEGER NOT NULL,
		member_id INTEGER NOT NULL REFERENCES members(id),
		contact_id INTEGER NOT NULL REFERENCES beneficiary_contacts(id),
		relationship TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL DEFAULT 'P',
		percent TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 1,
		UNIQUE (badge_number, psn_suffix)
	);

	CREATE TABLE IF NOT EXISTS vesting_schedules (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		effective_date TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vesting_breakpoints (
		schedule_id INTEGER NOT NULL REFERENCES vesting_schedules(id),
		years_of_service INTEGER NOT NULL,
		percent TEXT NOT NULL,
		PRIMARY KEY (schedule_id, years_of_service)
	);
`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS profit_details (
		id BIGSERIAL PRIMARY KEY,
		ssn INTEGER NOT NULL,
		profit_year INTEGER NOT NULL,
		profit_code SMALLINT NOT NULL,
		contribution NUMERIC(18,2) NOT NULL DEFAULT 0,
		earnings NUMERIC(18,2) NOT NULL DEFAULT 0,
		forfeiture NUMERIC(18,2) NOT NULL DEFAULT 0,
		federal_taxes NUMERIC(18,2) NOT NULL DEFAULT 0,
		state_taxes NUMERIC(18,2) NOT NULL DEFAULT 0,
		month_to_date SMALLINT NOT NULL DEFAULT 0,
		year_to_date SMALLINT NOT NULL DEFAULT 0,
		comment_type SMALLINT NOT NULL DEFAULT 0,
		remark TEXT NOT NULL DEFAULT '',
		comment_related_oracle_hcm_id BIGINT NOT NULL DEFAULT 0,
		comment_related_psn_suffix INTEGER,
		reversed_from_id BIGINT REFERENCES profit_details(id),
		idempotency_key TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_profit_details_ssn_year
		ON profit_details(ssn, profit_year);

	CREATE TABLE IF NOT EXISTS balance_snapshots (
		ssn INTEGER NOT NULL,
		profit_year INTEGER NOT NULL,
		total NUMERIC(18,2) NOT NULL,
		PRIMARY KEY (ssn, profit_year)
	);

	CREATE TABLE IF NOT EXISTS members (
		id BIGSERIAL PRIMARY KEY,
		oracle_hcm_id BIGINT NOT NULL DEFAULT 0,
		ssn INTEGER NOT NULL,
		badge_number INTEGER NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		date_of_birth TIMESTAMPTZ,
		termination_code TEXT NOT NULL DEFAULT '',
		termination_date TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_members_ssn ON members(ssn);

	CREATE TABLE IF NOT EXISTS pay_profits (
		member_id BIGINT NOT NULL REFERENCES members(id),
		profit_year INTEGER NOT NULL,
		etva NUMERIC(18,2) NOT NULL DEFAULT 0,
		current_hours_year NUMERIC(10,2) NOT NULL DEFAULT 0,
		current_income_year NUMERIC(18,2) NOT NULL DEFAULT 0,
		years_in_plan SMALLINT NOT NULL DEFAULT 0,
		vesting_schedule_id INTEGER NOT NULL DEFAULT 0,
		enrollment_id SMALLINT NOT NULL DEFAULT 0,
		zero_contribution_reason SMALLINT NOT NULL DEFAULT 0,
		version BIGINT NOT NULL,
		PRIMARY KEY (member_id, profit_year)
	);

	CREATE TABLE IF NOT EXISTS beneficiary_contacts (
		id BIGSERIAL PRIMARY KEY,
		ssn INTEGER NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		middle_name TEXT NOT NULL DEFAULT '',
		date_of_birth TIMESTAMPTZ,
		street TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS beneficiaries (
		id BIGSERIAL PRIMARY KEY,
		badge_number INTEGER NOT NULL,
		psn_suffix INTEGER NOT NULL,
		member_id BIGINT NOT NULL REFERENCES members(id),
		contact_id BIGINT NOT NULL REFERENCES beneficiary_contacts(id),
		relationship TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL DEFAULT 'P',
		percent NUMERIC(5,2) NOT NULL DEFAULT 0,
		version BIGINT NOT NULL DEFAULT 1,
		UNIQUE (badge_number, psn_suffix)
	);

	CREATE TABLE IF NOT EXISTS vesting_schedules (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		effective_date TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vesting_breakpoints (
		schedule_id INTEGER NOT NULL REFERENCES vesting_schedules(id),
		years_of_service INTEGER NOT NULL,
		percent NUMERIC(5,2) NOT NULL,
		PRIMARY KEY (schedule_id, years_of_service)
	);
`
