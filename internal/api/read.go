package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/PaulSpaurgen/interface-v2/constants"
	"github.com/PaulSpaurgen/interface-v2/internal/conversion"
	"github.com/PaulSpaurgen/interface-v2/internal/models"
	"github.com/PaulSpaurgen/interface-v2/internal/oyster"
	"github.com/PaulSpaurgen/interface-v2/util"
)

type JobView struct {
	models.Job
	BalanceDisplay   string             `json:"balance_display"`
	RatePerHour      string             `json:"rate_per_hour"`
	DurationLeftText string             `json:"duration_left_text"`
	StatusVariant    oyster.Variant     `json:"status_variant"`
	DurationVariant  oyster.Variant     `json:"duration_variant"`
	RevisePhase      oyster.RevisePhase `json:"revise_phase"`
	ReviseTimeLeft   int64              `json:"revise_time_left"`
}

type ListingView struct {
	models.MarketplaceListing
	RatePerHour string `json:"rate_per_hour"`
}

func (s *Server) jobView(job models.Job, now int64) JobView {
	return JobView{
		Job:              job,
		BalanceDisplay:   conversion.BigIntToCommaString(job.Balance, s.token.Precision, s.token.Decimals),
		RatePerHour:      oyster.ConvertRateToPerHourString(job.DownScaledRate, s.token.Decimals, s.token.Precision),
		DurationLeftText: conversion.EpochToDurationString(job.DurationLeft),
		StatusVariant:    oyster.InventoryStatusVariant(job.Status),
		DurationVariant:  oyster.InventoryDurationVariant(job.DurationLeft),
		RevisePhase:      oyster.ReviseRatePhase(job, now),
		ReviseTimeLeft:   oyster.ReviseTimeLeft(job, now),
	}
}

func (s *Server) jobViews(jobs []models.Job) []JobView {
	now := s.store.Now()
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, s.jobView(job, now))
	}
	return views
}

type sortQuery struct {
	Search   string `form:"search"`
	Sort     string `form:"sort"`
	Order    string `form:"order"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// page returns the requested page of n items as [start, end). A zero page means all.
func (q sortQuery) page(n int) (int, int, *util.PageInfo) {
	if q.Page <= 0 {
		return 0, n, nil
	}
	size := q.PageSize
	if size <= 0 {
		size = constants.OysterTableItemsPerPage
	}
	start := (q.Page - 1) * size
	if start > n {
		start = n
	}
	end := start + size
	if end > n {
		end = n
	}
	return start, end, &util.PageInfo{
		PageNumber:       strconv.Itoa(q.Page),
		PageSize:         strconv.Itoa(size),
		TotalRecordCount: strconv.Itoa(n),
	}
}

func paramError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.ParamError, err.Error()))
}

func (s *Server) ListJobs(c *gin.Context) {
	var q sortQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		paramError(c, err)
		return
	}
	order, err := oyster.ParseOrder(q.Order)
	if err != nil {
		paramError(c, err)
		return
	}
	jobs := oyster.SearchInventory(q.Search, s.store.Snapshot().JobsData)
	if q.Sort != "" {
		key, err := oyster.ParseJobSortKey(q.Sort)
		if err != nil {
			paramError(c, err)
			return
		}
		jobs = oyster.SortJobs(jobs, key, order)
	}
	start, end, page := q.page(len(jobs))
	c.JSON(http.StatusOK, util.CreatePageResponse(s.jobViews(jobs[start:end]), page))
}

func (s *Server) GetJob(c *gin.Context) {
	job, ok := s.store.Snapshot().FindJob(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, util.CreateErrorResponse(util.NotFound))
		return
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse(s.jobView(job, s.store.Now())))
}

func (s *Server) ListMerchantJobs(c *gin.Context) {
	var q sortQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		paramError(c, err)
		return
	}
	order, err := oyster.ParseOrder(q.Order)
	if err != nil {
		paramError(c, err)
		return
	}
	jobs := oyster.SearchOysterJobs(q.Search, s.store.Snapshot().MerchantJobsData)
	if q.Sort != "" {
		key, err := oyster.ParseOperatorJobSortKey(q.Sort)
		if err != nil {
			paramError(c, err)
			return
		}
		jobs = oyster.SortOperatorJobs(jobs, key, order)
	}
	start, end, page := q.page(len(jobs))
	c.JSON(http.StatusOK, util.CreatePageResponse(s.jobViews(jobs[start:end]), page))
}

type marketplaceQuery struct {
	sortQuery
	oyster.Filter
	Exact  bool   `form:"exact"`
	Strict bool   `form:"strict"`
	Rate   string `form:"rate"`
}

func (s *Server) marketplace(c *gin.Context) ([]models.MarketplaceListing, sortQuery, bool) {
	var q marketplaceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		paramError(c, err)
		return nil, q.sortQuery, false
	}
	f := q.Filter
	f.Provider = filterValue(f.Provider)
	f.Region = filterValue(f.Region)
	f.Instance = filterValue(f.Instance)
	if q.Rate != "" {
		rate, err := conversion.StringToBigInt(q.Rate, s.token.Decimals)
		if err != nil {
			paramError(c, err)
			return nil, q.sortQuery, false
		}
		f.Rate = rate
	}

	listings := s.store.Snapshot().AllMarketplaceData
	if q.Strict {
		listings = oyster.FilterMarketplaceStrict(listings, f)
	} else {
		listings = oyster.FilterMarketplace(listings, f, q.Exact)
	}
	return oyster.SearchMarketplace(q.Search, listings), q.sortQuery, true
}

func (s *Server) ListMarketplace(c *gin.Context) {
	listings, q, ok := s.marketplace(c)
	if !ok {
		return
	}
	order, err := oyster.ParseOrder(q.Order)
	if err != nil {
		paramError(c, err)
		return
	}
	if q.Sort != "" {
		key, err := oyster.ParseListingSortKey(q.Sort)
		if err != nil {
			paramError(c, err)
			return
		}
		listings = oyster.SortMarketplace(listings, key, order)
	}

	start, end, page := q.page(len(listings))
	views := make([]ListingView, 0, end-start)
	for _, item := range listings[start:end] {
		views = append(views, ListingView{
			MarketplaceListing: item,
			RatePerHour:        oyster.ConvertRateToPerHourString(item.Rate, s.token.Decimals, s.token.Precision),
		})
	}
	c.JSON(http.StatusOK, util.CreatePageResponse(views, page))
}

// MarketplaceFilters lists the filter options left by the current filters. The
// dimensions named in keep list every option of the unfiltered marketplace.
func (s *Server) MarketplaceFilters(c *gin.Context) {
	listings, _, ok := s.marketplace(c)
	if !ok {
		return
	}
	current := oyster.DeriveFilters(listings, true)

	var keep []oyster.FilterID
	for _, k := range c.QueryArray("keep") {
		id, ok := oyster.ParseFilterID(k)
		if !ok {
			c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.ParamError, "unknown filter: "+k))
			return
		}
		keep = append(keep, id)
	}
	if len(keep) > 0 {
		all := oyster.DeriveFilters(s.store.Snapshot().AllMarketplaceData, true)
		current = oyster.UpdatedFilters(all, current, keep)
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse(current))
}

type providerOffer struct {
	oyster.InstanceRegionFilters
	Rate        string `json:"rate,omitempty"`
	RatePerHour string `json:"rate_per_hour,omitempty"`
}

// ProviderOffer lists what a provider offers, with the rate of the instance and region
// given in the query.
func (s *Server) ProviderOffer(c *gin.Context) {
	address := c.Param("address")
	listings := s.store.Snapshot().AllMarketplaceData
	offer := providerOffer{
		InstanceRegionFilters: oyster.CreateOrderInstanceRegionFilters(address, listings),
	}
	if rate := oyster.RateForProviderAndFilters(address, c.Query("instance"), c.Query("region"), listings); rate != nil {
		offer.Rate = rate.String()
		offer.RatePerHour = oyster.ConvertRateToPerHourString(rate, s.token.Decimals, s.token.Precision)
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse(offer))
}

func (s *Server) GetProvider(c *gin.Context) {
	state := s.store.Snapshot()
	c.JSON(http.StatusOK, util.CreateSuccessResponse(gin.H{
		"provider":  state.ProviderData,
		"loaded":    state.ProviderDetailsLoaded,
		"allowance": conversion.BigIntToCommaString(state.Allowance, s.token.Precision, s.token.Decimals),
	}))
}
