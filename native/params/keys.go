package params

// Canonical parameter store keys. Values are JSON payloads so governance
// tooling can author them directly.
const (
	ParamsKeyComplainPeriod = "voucher.complainPeriodSecs"
	ParamsKeyCancelPeriod   = "voucher.cancelPeriodSecs"
	ParamsKeyOrderLimits    = "voucher.orderLimits"
	ParamsKeyPauses         = "system.pauses"
)
