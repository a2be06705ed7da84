package ledger

// ProfitCode classifies the economic meaning of a ledger entry.
type ProfitCode uint8

const (
	CodeIncomingContributions             ProfitCode = 0
	CodeOutgoingPaymentsPartialWithdrawal ProfitCode = 1
	CodeOutgoingForfeitures               ProfitCode = 2
	CodeOutgoingDirectPayments            ProfitCode = 3
	CodeOutgoingXferBeneficiary           ProfitCode = 5
	CodeIncomingQdroBeneficiary           ProfitCode = 6
	CodeIncoming100PercentVestedEarnings  ProfitCode = 8
	CodeOutgoing100PercentVestedPayment   ProfitCode = 9
)

// AllCodes lists every defined profit code in ascending order.
var AllCodes = []ProfitCode{
	CodeIncomingContributions,
	CodeOutgoingPaymentsPartialWithdrawal,
	CodeOutgoingForfeitures,
	CodeOutgoingDirectPayments,
	CodeOutgoingXferBeneficiary,
	CodeIncomingQdroBeneficiary,
	CodeIncoming100PercentVestedEarnings,
	CodeOutgoing100PercentVestedPayment,
}

// paymentCodes and incomingCodes are disjoint. Code 6 belongs to neither:
// it is the credit leg of a beneficiary transfer.
var (
	paymentCodes = map[ProfitCode]bool{
		CodeOutgoingPaymentsPartialWithdrawal: true,
		CodeOutgoingForfeitures:               true,
		CodeOutgoingDirectPayments:            true,
		CodeOutgoingXferBeneficiary:           true,
		CodeOutgoing100PercentVestedPayment:   true,
	}
	incomingCodes = map[ProfitCode]bool{
		CodeIncomingContributions:            true,
		CodeIncoming100PercentVestedEarnings: true,
	}
)

// PaymentCodes returns the codes excluded from forfeiture aggregation.
func PaymentCodes() []ProfitCode {
	return filterCodes(paymentCodes)
}

// IncomingCodes returns the codes that feed contribution and earnings totals.
func IncomingCodes() []ProfitCode {
	return filterCodes(incomingCodes)
}

func filterCodes(set map[ProfitCode]bool) []ProfitCode {
	out := make([]ProfitCode, 0, len(set))
	for _, c := range AllCodes {
		if set[c] {
			out = append(out, c)
		}
	}
	return out
}

func (c ProfitCode) IsPayment() bool  { return paymentCodes[c] }
func (c ProfitCode) IsIncoming() bool { return incomingCodes[c] }

func (c ProfitCode) IsValid() bool {
	for _, known := range AllCodes {
		if c == known {
			return true
		}
	}
	return false
}

func (c ProfitCode) String() string {
	switch c {
	case CodeIncomingContributions:
		return "incoming_contributions"
	case CodeOutgoingPaymentsPartialWithdrawal:
		return "outgoing_partial_withdrawal"
	case CodeOutgoingForfeitures:
		return "outgoing_forfeitures"
	case CodeOutgoingDirectPayments:
		return "outgoing_direct_payments"
	case CodeOutgoingXferBeneficiary:
		return "outgoing_xfer_beneficiary"
	case CodeIncomingQdroBeneficiary:
		return "incoming_qdro_beneficiary"
	case CodeIncoming100PercentVestedEarnings:
		return "incoming_100_percent_vested_earnings"
	case CodeOutgoing100PercentVestedPayment:
		return "outgoing_100_percent_vested_payment"
	default:
		return "unknown"
	}
}
