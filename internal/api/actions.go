package api

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/gin-gonic/gin"

	"github.com/PaulSpaurgen/interface-v2/constants"
	"github.com/PaulSpaurgen/interface-v2/internal/conversion"
	"github.com/PaulSpaurgen/interface-v2/internal/oyster"
	"github.com/PaulSpaurgen/interface-v2/internal/services"
	"github.com/PaulSpaurgen/interface-v2/internal/store"
	"github.com/PaulSpaurgen/interface-v2/util"
)

type createJobReq struct {
	Provider   string `json:"provider" binding:"required"`
	Instance   string `json:"instance" binding:"required"`
	Region     string `json:"region" binding:"required"`
	Duration   string `json:"duration" binding:"required"`
	EnclaveURL string `json:"url"`
}

type amountReq struct {
	Amount string `json:"amount" binding:"required"`
}

type reviseReq struct {
	Rate string `json:"rate" binding:"required"`
}

type providerReq struct {
	CP string `json:"cp" binding:"required"`
}

func (s *Server) serviceReady(c *gin.Context) bool {
	if s.service == nil {
		c.JSON(http.StatusServiceUnavailable, util.CreateErrorResponse(util.WalletNotConfigured))
		return false
	}
	return true
}

// actionDone records the result of an action and writes the response.
func (s *Server) actionDone(c *gin.Context, action string, data interface{}, err error) {
	if s.metrics != nil {
		s.metrics.Transaction(action, err)
	}
	switch {
	case err == nil:
		c.JSON(http.StatusOK, util.CreateSuccessResponse(data))
	case errors.Is(err, services.ErrJobNotFound):
		c.JSON(http.StatusNotFound, util.CreateErrorResponse(util.NotFound, err.Error()))
	case errors.Is(err, store.ErrRevisePending):
		c.JSON(http.StatusConflict, util.CreateErrorResponse(util.RevisePending))
	default:
		logs.GetLogger().Errorf("oyster action %s failed, error: %+v", action, err)
		c.JSON(http.StatusInternalServerError, util.CreateErrorResponse(util.TransactionError, err.Error()))
	}
}

// positiveAmount parses a token amount entered by a user.
func (s *Server) positiveAmount(value string) (*big.Int, error) {
	amount, err := conversion.StringToBigInt(value, s.token.Decimals)
	if err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be greater than zero: %s", value)
	}
	return amount, nil
}

// CreateJob opens a job on a marketplace listing. Duration is given in hours.
func (s *Server) CreateJob(c *gin.Context) {
	if !s.serviceReady(c) {
		return
	}
	var req createJobReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.JsonError, err.Error()))
		return
	}
	duration := oyster.ComputeDuration(req.Duration, constants.OysterRateMetadata.UnitInSeconds)
	if duration <= 0 {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.ParamError, "invalid duration: "+req.Duration))
		return
	}
	jobReq, err := services.ListingJobRequest(s.store.Snapshot().AllMarketplaceData, req.Provider, req.Instance, req.Region,
		req.EnclaveURL, duration, s.store.RateScalingFactor())
	if err != nil {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.ParamError, err.Error()))
		return
	}

	job, err := s.service.CreateJob(c.Request.Context(), jobReq)
	if err != nil {
		s.actionDone(c, "jobOpen", nil, err)
		return
	}
	s.actionDone(c, "jobOpen", s.jobView(job, s.store.Now()), nil)
}

func (s *Server) bindAmount(c *gin.Context) (*big.Int, bool) {
	var req amountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.JsonError, err.Error()))
		return nil, false
	}
	amount, err := s.positiveAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.ParamError, err.Error()))
		return nil, false
	}
	return amount, true
}

// durationFor is the number of seconds amount pays for on job id, 0 for unknown jobs.
func (s *Server) durationFor(id string, amount *big.Int) int64 {
	job, ok := s.store.Snapshot().FindJob(id)
	if !ok {
		return 0
	}
	return oyster.DurationForAmount(amount, job.DownScaledRate)
}

func (s *Server) Deposit(c *gin.Context) {
	if !s.serviceReady(c) {
		return
	}
	amount, ok := s.bindAmount(c)
	if !ok {
		return
	}
	id := c.Param("id")
	err := s.service.AddFunds(c.Request.Context(), id, amount, s.durationFor(id, amount))
	s.actionDone(c, "jobDeposit", s.jobOrNil(id, err), err)
}

func (s *Server) Withdraw(c *gin.Context) {
	if !s.serviceReady(c) {
		return
	}
	amount, ok := s.bindAmount(c)
	if !ok {
		return
	}
	id := c.Param("id")
	err := s.service.WithdrawFunds(c.Request.Context(), id, amount, s.durationFor(id, amount))
	s.actionDone(c, "jobWithdraw", s.jobOrNil(id, err), err)
}

// InitiateRevise takes the new rate per hour in token units. Zero asks to stop the job.
func (s *Server) InitiateRevise(c *gin.Context) {
	if !s.serviceReady(c) {
		return
	}
	var req reviseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.JsonError, err.Error()))
		return
	}
	hourly, err := conversion.StringToBigInt(req.Rate, s.token.Decimals)
	if err != nil || hourly.Sign() < 0 {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.ParamError, "invalid rate: "+req.Rate))
		return
	}
	rate := oyster.HourlyRateToContractRate(hourly, s.store.RateScalingFactor())

	id := c.Param("id")
	err = s.service.InitiateRateRevise(c.Request.Context(), id, rate)
	s.actionDone(c, "jobReviseRateInitiate", s.jobOrNil(id, err), err)
}

func (s *Server) CancelRevise(c *gin.Context) {
	if !s.serviceReady(c) {
		return
	}
	id := c.Param("id")
	err := s.service.CancelRateRevise(c.Request.Context(), id)
	s.actionDone(c, "jobReviseRateCancel", s.jobOrNil(id, err), err)
}

func (s *Server) FinalizeRevise(c *gin.Context) {
	if !s.serviceReady(c) {
		return
	}
	id := c.Param("id")
	err := s.service.FinalizeRateRevise(c.Request.Context(), id)
	s.actionDone(c, "jobReviseRateFinalize", s.jobOrNil(id, err), err)
}

// ReviseTimerEnd records that the waiting time of a stop request has passed.
func (s *Server) ReviseTimerEnd(c *gin.Context) {
	if !s.serviceReady(c) {
		return
	}
	id := c.Param("id")
	err := s.service.MarkRevisionTimerEnded(id)
	switch {
	case errors.Is(err, services.ErrJobNotFound):
		c.JSON(http.StatusNotFound, util.CreateErrorResponse(util.NotFound, err.Error()))
	case err != nil:
		c.JSON(http.StatusInternalServerError, util.CreateErrorResponse(util.ServerError, err.Error()))
	default:
		c.JSON(http.StatusOK, util.CreateSuccessResponse(s.jobOrNil(id, nil)))
	}
}

func (s *Server) StopJob(c *gin.Context) {
	if !s.serviceReady(c) {
		return
	}
	id := c.Param("id")
	err := s.service.StopJob(c.Request.Context(), id)
	s.actionDone(c, "jobClose", s.jobOrNil(id, err), err)
}

func (s *Server) SettleJob(c *gin.Context) {
	if !s.serviceReady(c) {
		return
	}
	err := s.service.ClaimAmount(c.Request.Context(), c.Param("id"))
	s.actionDone(c, "jobSettle", nil, err)
}

func (s *Server) ApproveFunds(c *gin.Context) {
	if !s.serviceReady(c) {
		return
	}
	amount, ok := s.bindAmount(c)
	if !ok {
		return
	}
	err := s.service.ApproveFunds(c.Request.Context(), amount)
	s.actionDone(c, "approve", gin.H{"allowance": amount.String()}, err)
}

func (s *Server) bindProvider(c *gin.Context) (string, bool) {
	var req providerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.JsonError, err.Error()))
		return "", false
	}
	return req.CP, true
}

// RegisterProvider registers the wallet as a provider serving the control plane url cp.
func (s *Server) RegisterProvider(c *gin.Context) {
	if !s.serviceReady(c) {
		return
	}
	cp, ok := s.bindProvider(c)
	if !ok {
		return
	}
	err := s.service.RegisterProvider(c.Request.Context(), cp)
	s.actionDone(c, "providerAdd", s.store.Snapshot().ProviderData, err)
}

func (s *Server) UpdateProvider(c *gin.Context) {
	if !s.serviceReady(c) {
		return
	}
	cp, ok := s.bindProvider(c)
	if !ok {
		return
	}
	err := s.service.UpdateProvider(c.Request.Context(), cp)
	s.actionDone(c, "providerUpdate", s.store.Snapshot().ProviderData, err)
}

func (s *Server) UnregisterProvider(c *gin.Context) {
	if !s.serviceReady(c) {
		return
	}
	err := s.service.UnregisterProvider(c.Request.Context())
	s.actionDone(c, "providerRemove", s.store.Snapshot().ProviderData, err)
}

func (s *Server) jobOrNil(id string, err error) interface{} {
	if err != nil {
		return nil
	}
	job, ok := s.store.Snapshot().FindJob(id)
	if !ok {
		return nil
	}
	return s.jobView(job, s.store.Now())
}
