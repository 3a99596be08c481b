package util

import (
	libconstants "github.com/filswan/go-swan-lib/constants"
)

type BasicResponse struct {
	Status   string      `json:"status"`
	Code     int         `json:"code"`
	Data     interface{} `json:"data,omitempty"`
	Message  string      `json:"message,omitempty"`
	PageInfo *PageInfo   `json:"page_info,omitempty"`
}

type PageInfo struct {
	PageNumber       string `json:"page_number"`
	PageSize         string `json:"page_size"`
	TotalRecordCount string `json:"total_record_count"`
}

func CreateSuccessResponse(_data interface{}) BasicResponse {
	return BasicResponse{
		Status: libconstants.SWAN_API_STATUS_SUCCESS,
		Data:   _data,
		Code:   SuccessCode,
	}
}

func CreatePageResponse(_data interface{}, page *PageInfo) BasicResponse {
	resp := CreateSuccessResponse(_data)
	resp.PageInfo = page
	return resp
}

func CreateErrorResponse(code int, errMsg ...string) BasicResponse {
	var msg string
	if len(errMsg) == 0 {
		msg = codeMsg[code]
	} else {
		msg = errMsg[0]
	}
	return BasicResponse{
		Status:  libconstants.SWAN_API_STATUS_FAIL,
		Code:    code,
		Message: msg,
	}
}

const (
	SuccessCode = 200
	JsonError   = 400
	NotFound    = 404
	ServerError = 500

	ParamError          = 8001
	WalletNotConfigured = 8002
	TransactionError    = 8003
	RevisePending       = 8004
)

var codeMsg = map[int]string{
	JsonError:   "An error occurred while converting to json",
	NotFound:    "The requested job was not found",
	ServerError: "An internal error occurred",

	ParamError:          "Invalid request parameter",
	WalletNotConfigured: "No wallet is configured for oyster actions",
	TransactionError:    "An error occurred while sending the transaction",
	RevisePending:       "A rate revision is already pending for this job",
}
