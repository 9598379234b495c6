package errors

// ERR is the numeric error category carried by every *Error.
type ERR int32

//nolint:revive,stylecheck // constant names follow the wire names
const (
	ERR_UNKNOWN             ERR = 0
	ERR_INVALID_ARGUMENT    ERR = 1
	ERR_NOT_FOUND           ERR = 3
	ERR_PROCESSING          ERR = 4
	ERR_CONFIGURATION       ERR = 5
	ERR_CONTEXT             ERR = 6
	ERR_CONTEXT_CANCELED    ERR = 7
	ERR_ERROR               ERR = 9
	ERR_BLOCK_NOT_FOUND     ERR = 10
	ERR_BLOCK_INVALID       ERR = 11
	ERR_TX_INVALID          ERR = 31
	ERR_TX_ALREADY_EXISTS   ERR = 33
	ERR_MESSAGE_INVALID     ERR = 35
	ERR_INSUFFICIENT_FUNDS  ERR = 36
	ERR_SERVICE_UNAVAILABLE ERR = 40
	ERR_SERVICE_ERROR       ERR = 42
	ERR_STORAGE_UNAVAILABLE ERR = 60
	ERR_STORAGE_ERROR       ERR = 62
	ERR_NETWORK_ERROR       ERR = 81
	ERR_NETWORK_TIMEOUT     ERR = 82
)

var ERR_name = map[int32]string{
	0:  "UNKNOWN",
	1:  "INVALID_ARGUMENT",
	3:  "NOT_FOUND",
	4:  "PROCESSING",
	5:  "CONFIGURATION",
	6:  "CONTEXT",
	7:  "CONTEXT_CANCELED",
	9:  "ERROR",
	10: "BLOCK_NOT_FOUND",
	11: "BLOCK_INVALID",
	31: "TX_INVALID",
	33: "TX_ALREADY_EXISTS",
	35: "MESSAGE_INVALID",
	36: "INSUFFICIENT_FUNDS",
	40: "SERVICE_UNAVAILABLE",
	42: "SERVICE_ERROR",
	60: "STORAGE_UNAVAILABLE",
	62: "STORAGE_ERROR",
	81: "NETWORK_ERROR",
	82: "NETWORK_TIMEOUT",
}

func (x ERR) String() string {
	if name, ok := ERR_name[int32(x)]; ok {
		return name
	}

	return "UNKNOWN"
}
