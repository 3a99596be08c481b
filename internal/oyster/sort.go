package oyster

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/PaulSpaurgen/interface-v2/internal/models"
)

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

func ParseOrder(s string) (Order, error) {
	switch o := Order(strings.ToLower(s)); o {
	case OrderAsc, OrderDesc:
		return o, nil
	case "":
		return OrderAsc, nil
	}
	return "", fmt.Errorf("unknown sort order: %s", s)
}

// comparator returns a negative number when a sorts before b in ascending order.
type comparator[T any] func(a, b T) int

func bigIntField[T any](get func(T) *big.Int) comparator[T] {
	return func(a, b T) int {
		x, y := get(a), get(b)
		if x == nil {
			x = zero
		}
		if y == nil {
			y = zero
		}
		return x.Cmp(y)
	}
}

func numberField[T any](get func(T) int64) comparator[T] {
	return func(a, b T) int {
		x, y := get(a), get(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
}

func stringField[T any](get func(T) string) comparator[T] {
	return func(a, b T) int {
		return strings.Compare(get(a), get(b))
	}
}

func valueOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// sortStable returns a sorted copy. Items with equal keys keep their relative order in
// both directions.
func sortStable[T any](items []T, cmp comparator[T], order Order) []T {
	sorted := make([]T, len(items))
	copy(sorted, items)
	if cmp == nil {
		return sorted
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if order == OrderDesc {
			return cmp(sorted[j], sorted[i]) < 0
		}
		return cmp(sorted[i], sorted[j]) < 0
	})
	return sorted
}

type JobSortKey string

const (
	JobSortBalance           JobSortKey = "balance"
	JobSortRate              JobSortKey = "rate"
	JobSortTotalDeposit      JobSortKey = "totalDeposit"
	JobSortAmountUsed        JobSortKey = "amountUsed"
	JobSortRefund            JobSortKey = "refund"
	JobSortAmountToBeSettled JobSortKey = "amountToBeSettled"
	JobSortDurationLeft      JobSortKey = "durationLeft"
	JobSortMemory            JobSortKey = "memory"
	JobSortVcpu              JobSortKey = "vcpu"
	JobSortDurationRun       JobSortKey = "durationRun"
	JobSortCreatedAt         JobSortKey = "createdAt"
	JobSortLastSettled       JobSortKey = "lastSettled"
	JobSortEndEpochTime      JobSortKey = "endEpochTime"
	JobSortInstance          JobSortKey = "instance"
	JobSortRegion            JobSortKey = "region"
	JobSortStatus            JobSortKey = "status"
	JobSortProvider          JobSortKey = "provider"
)

var jobComparators = map[JobSortKey]comparator[models.Job]{
	JobSortBalance:           bigIntField(func(j models.Job) *big.Int { return j.Balance }),
	JobSortRate:              bigIntField(func(j models.Job) *big.Int { return j.Rate }),
	JobSortTotalDeposit:      bigIntField(func(j models.Job) *big.Int { return j.TotalDeposit }),
	JobSortAmountUsed:        bigIntField(func(j models.Job) *big.Int { return j.AmountUsed }),
	JobSortRefund:            bigIntField(func(j models.Job) *big.Int { return j.Refund }),
	JobSortAmountToBeSettled: bigIntField(func(j models.Job) *big.Int { return j.AmountToBeSettled }),
	JobSortDurationLeft:      numberField(func(j models.Job) int64 { return j.DurationLeft }),
	JobSortMemory:            numberField(func(j models.Job) int64 { return valueOrZero(j.Memory) }),
	JobSortVcpu:              numberField(func(j models.Job) int64 { return valueOrZero(j.Vcpu) }),
	JobSortDurationRun:       numberField(func(j models.Job) int64 { return j.DurationRun }),
	JobSortCreatedAt:         numberField(func(j models.Job) int64 { return j.CreatedAt }),
	JobSortLastSettled:       numberField(func(j models.Job) int64 { return j.LastSettled }),
	JobSortEndEpochTime:      numberField(func(j models.Job) int64 { return j.EndEpochTime }),
	JobSortInstance:          stringField(func(j models.Job) string { return j.Instance }),
	JobSortRegion:            stringField(func(j models.Job) string { return j.Region }),
	JobSortStatus:            stringField(func(j models.Job) string { return j.Status }),
	JobSortProvider:          stringField(func(j models.Job) string { return j.Provider.DisplayName() }),
}

// keys accepted by the provider side job tables
var operatorJobSortKeys = map[JobSortKey]struct{}{
	JobSortAmountToBeSettled: {},
	JobSortDurationLeft:      {},
	JobSortDurationRun:       {},
	JobSortCreatedAt:         {},
	JobSortInstance:          {},
	JobSortRegion:            {},
	JobSortStatus:            {},
	JobSortProvider:          {},
}

func ParseJobSortKey(s string) (JobSortKey, error) {
	key := JobSortKey(s)
	if _, ok := jobComparators[key]; !ok {
		return "", fmt.Errorf("unknown job sort key: %s", s)
	}
	return key, nil
}

func ParseOperatorJobSortKey(s string) (JobSortKey, error) {
	key := JobSortKey(s)
	if _, ok := operatorJobSortKeys[key]; !ok {
		return "", fmt.Errorf("unknown operator job sort key: %s", s)
	}
	return key, nil
}

// SortJobs returns a sorted copy of the owner inventory.
func SortJobs(jobs []models.Job, key JobSortKey, order Order) []models.Job {
	return sortStable(jobs, jobComparators[key], order)
}

// SortOperatorJobs sorts the jobs a provider serves. Keys outside the provider table
// leave the order unchanged.
func SortOperatorJobs(jobs []models.Job, key JobSortKey, order Order) []models.Job {
	if _, ok := operatorJobSortKeys[key]; !ok {
		return sortStable(jobs, nil, order)
	}
	return sortStable(jobs, jobComparators[key], order)
}

type ListingSortKey string

const (
	ListingSortRate     ListingSortKey = "rate"
	ListingSortMemory   ListingSortKey = "memory"
	ListingSortVcpu     ListingSortKey = "vcpu"
	ListingSortInstance ListingSortKey = "instance"
	ListingSortRegion   ListingSortKey = "region"
)

var listingComparators = map[ListingSortKey]comparator[models.MarketplaceListing]{
	ListingSortRate:     bigIntField(func(l models.MarketplaceListing) *big.Int { return l.Rate }),
	ListingSortMemory:   numberField(func(l models.MarketplaceListing) int64 { return valueOrZero(l.Memory) }),
	ListingSortVcpu:     numberField(func(l models.MarketplaceListing) int64 { return valueOrZero(l.Vcpu) }),
	ListingSortInstance: stringField(func(l models.MarketplaceListing) string { return l.Instance }),
	ListingSortRegion:   stringField(func(l models.MarketplaceListing) string { return l.Region }),
}

func ParseListingSortKey(s string) (ListingSortKey, error) {
	key := ListingSortKey(s)
	if _, ok := listingComparators[key]; !ok {
		return "", fmt.Errorf("unknown marketplace sort key: %s", s)
	}
	return key, nil
}

func SortMarketplace(listings []models.MarketplaceListing, key ListingSortKey, order Order) []models.MarketplaceListing {
	return sortStable(listings, listingComparators[key], order)
}
