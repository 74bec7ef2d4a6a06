package universe

// suffixField is one fixed-width column in the 228-byte tail of a KOSPI
// master row. Order matters; widths are consumed sequentially.
type suffixField struct {
	name  string
	width int
}

// SuffixWidth is the fixed byte length of the decoded tail of every row.
// Rows shorter than this are padding/garbage and are skipped.
const SuffixWidth = 228

// suffixLayout mirrors the kospi_code.mst record layout published with the
// broker's API samples. Flag columns hold 'Y'/'N', the wider columns hold
// zero-padded numerics we keep as trimmed strings.
var suffixLayout = []suffixField{
	{"group_code", 2},
	{"market_cap_scale", 1},
	{"sector_large", 4},
	{"sector_medium", 4},
	{"sector_small", 4},
	{"manufacturing", 1},
	{"low_liquidity", 1},
	{"governance_index", 1},
	{"kospi200_sector", 1},
	{"kospi100", 1},
	{"kospi50", 1},
	{"krx", 1},
	{"etp", 1},
	{"elw_issued", 1},
	{"krx100", 1},
	{"krx_autos", 1},
	{"krx_semicon", 1},
	{"krx_bio", 1},
	{"krx_banks", 1},
	{"spac", 1},
	{"krx_energy_chem", 1},
	{"krx_steel", 1},
	{"short_term_overheat", 1},
	{"krx_media_telecom", 1},
	{"krx_construction", 1},
	{"fund", 1},
	{"krx_securities", 1},
	{"krx_ship", 1},
	{"krx_insurance", 1},
	{"krx_transport", 1},
	{"sri", 1},
	{"base_price", 9},
	{"trade_unit", 5},
	{"after_hours_unit", 5},
	{"trading_halt", 1},
	{"delisting", 1},
	{"administrative", 1},
	{"market_warning", 2},
	{"warning_notice", 1},
	{"unfaithful_disclosure", 1},
	{"backdoor_listing", 1},
	{"lock_type", 2},
	{"par_value_change", 2},
	{"capital_increase", 2},
	{"margin_rate", 3},
	{"credit_allowed", 1},
	{"credit_period", 3},
	{"prev_volume", 12},
	{"par_value", 12},
	{"listing_date", 8},
	{"listed_shares", 15},
	{"capital", 21},
	{"settlement_month", 2},
	{"ipo_price", 7},
	{"preferred", 1},
	{"short_sell_overheat", 1},
	{"abnormal_surge", 1},
	{"krx300", 1},
	{"kospi", 1},
	{"sales", 9},
	{"operating_profit", 9},
	{"ordinary_profit", 9},
	{"net_income", 5},
	{"roe", 9},
	{"base_year_month", 8},
	{"market_cap", 9},
	{"group_company_code", 3},
	{"credit_limit_exceeded", 1},
	{"secured_loan_allowed", 1},
	{"stock_loan_allowed", 1},
	{"filler", 1},
}
