package constants

const StatusRunning = "running"
const StatusActive = "active"
const StatusCompleted = "completed"
const StatusInactive = "inactive"
const StatusStopped = "stopped"

// deposit history transaction status
const TxStatusDeposit string = "deposit"
const TxStatusWithdrawal string = "withdrawal"
const TxStatusStopped string = "stopped"

// rate revise status
const RateStatusPending string = "pending"
const StopStatusDisabled string = "disabled"
const StopStatusPending string = "pending"
const StopStatusCompleted string = "completed"

const FilterAllOption = "All"

const SecondsInHour int64 = 3600
const SecondsInDay int64 = 86400

const REDIS_MARKETPLACE_PREFIX = "OYSTER:MARKETPLACE:"

const DEFAULT_REPO_PATH = "~/.oyster"
