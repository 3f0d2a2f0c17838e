package core

// FeeSource tells which level of the override chain produced an effective fee.
type FeeSource string

const (
	FeeFromPerson FeeSource = "person"
	FeeFromTeam   FeeSource = "team"
	FeeFromGlobal FeeSource = "global"
)

// ResolveFee returns the effective fee percentage for p. The person's own fee
// wins, then the team's, then globalFee. team may be nil when the person's
// team cannot be found.
func ResolveFee(p Person, team *Team, globalFee float64) float64 {
	fee, _ := ResolveFeeSource(p, team, globalFee)
	return fee
}

// ResolveFeeSource is ResolveFee that also reports where the value came from.
func ResolveFeeSource(p Person, team *Team, globalFee float64) (float64, FeeSource) {
	if p.Fee != nil {
		return *p.Fee, FeeFromPerson
	}
	if team != nil && team.Fee != nil {
		return *team.Fee, FeeFromTeam
	}
	return globalFee, FeeFromGlobal
}

// Contribution is the management fee owed for billable at feePercent.
func Contribution(billable, feePercent float64) float64 {
	return billable * feePercent / 100
}
