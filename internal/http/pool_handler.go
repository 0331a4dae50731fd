package http

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/http/httputil"
	"github.com/hxuan190/quote-engine/internal/pools"
)

type PoolHandler struct {
	fetcher pools.Fetcher
}

func NewPoolHandler(fetcher pools.Fetcher) *PoolHandler {
	return &PoolHandler{fetcher: fetcher}
}

func (h *PoolHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/candidates", h.listCandidates)
	pub.GET("/pairs", h.listPairs)
}

func (h *PoolHandler) Root() string {
	return "/pools"
}

// PoolInfo contains basic information about a liquidity pool
type PoolInfo struct {
	Address  string       `json:"address"`
	Protocol string       `json:"protocol" example:"V3"`
	Token0   CurrencyView `json:"token0"`
	Token1   CurrencyView `json:"token1"`
	// Fee in hundredths of a bip (3000 = 0.3%)
	Fee uint32 `json:"fee" example:"500"`
	// Light pools carry no reserves
	Light bool `json:"light,omitempty"`
}

// PoolListResponse contains a page of candidate pools
type PoolListResponse struct {
	Pools []PoolInfo `json:"pools"`
	Total int        `json:"total" example:"42"`
	Page  int        `json:"page" example:"1"`
	Limit int        `json:"limit" example:"100"`
	Pages int        `json:"pages" example:"1"`
}

type pairParams struct {
	in, out domain.Currency
	opts    pools.Options
}

func parsePairParams(c *gin.Context) (pairParams, bool) {
	chainID, err := strconv.ParseUint(c.Query("chainId"), 10, 64)
	if err != nil || chainID == 0 {
		httputil.HandleBadRequest(c, "invalid chainId")
		return pairParams{}, false
	}
	decimalsA, _ := strconv.Atoi(c.DefaultQuery("decimalsA", "18"))
	decimalsB, _ := strconv.Atoi(c.DefaultQuery("decimalsB", "18"))
	in, err := common.ResolveCurrency(domain.ChainID(chainID), c.Query("tokenA"), uint8(decimalsA))
	if err != nil {
		httputil.HandleBadRequest(c, "invalid tokenA: "+err.Error())
		return pairParams{}, false
	}
	out, err := common.ResolveCurrency(domain.ChainID(chainID), c.Query("tokenB"), uint8(decimalsB))
	if err != nil {
		httputil.HandleBadRequest(c, "invalid tokenB: "+err.Error())
		return pairParams{}, false
	}

	opts := pools.Options{Mode: domain.FetchMode(c.DefaultQuery("mode", string(domain.ModeFull)))}
	if opts.Mode != domain.ModeFull && opts.Mode != domain.ModeLight {
		httputil.HandleBadRequest(c, "invalid mode: must be light or full")
		return pairParams{}, false
	}
	if list := c.Query("protocols"); list != "" {
		for _, name := range strings.Split(list, ",") {
			opts.Protocols = append(opts.Protocols, domain.Protocol(strings.ToUpper(strings.TrimSpace(name))))
		}
	}
	return pairParams{in: in, out: out, opts: opts}, true
}

// @Summary List candidate pools
// @Description Pools of the direct pair and of every pair through the chain's base tokens.
// @Tags pools
// @Produce json
// @Param chainId query int true "Chain id"
// @Param tokenA query string true "Token address or native"
// @Param tokenB query string true "Token address or native"
// @Param mode query string false "light or full" Enums(light, full)
// @Param protocols query string false "Comma separated protocols"
// @Param page query int false "Page, 1-indexed"
// @Param limit query int false "Page size, max 500"
// @Success 200 {object} PoolListResponse
// @Router /api/v1/pools/candidates [get]
func (h *PoolHandler) listCandidates(c *gin.Context) {
	pp, ok := parsePairParams(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	all, err := pools.FetchCandidates(c.Request.Context(), h.fetcher, pp.in, pp.out, 0, pp.opts)
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	total := len(all)
	pages := (total + limit - 1) / limit
	offset := min((page-1)*limit, total)
	end := min(offset+limit, total)

	list := make([]PoolInfo, 0, end-offset)
	for _, p := range all[offset:end] {
		list = append(list, PoolInfo{
			Address:  p.Address,
			Protocol: string(p.Protocol),
			Token0:   currencyView(p.Token0),
			Token1:   currencyView(p.Token1),
			Fee:      p.Fee,
			Light:    p.Reserve0 == nil && p.Liquidity == nil,
		})
	}

	httputil.HandleSuccess(c, PoolListResponse{
		Pools: list,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	})
}

// @Summary List candidate pairs
// @Tags pools
// @Produce json
// @Param chainId query int true "Chain id"
// @Param tokenA query string true "Token address or native"
// @Param tokenB query string true "Token address or native"
// @Success 200 {array} []CurrencyView "pairs of currencies"
// @Router /api/v1/pools/pairs [get]
func (h *PoolHandler) listPairs(c *gin.Context) {
	pp, ok := parsePairParams(c)
	if !ok {
		return
	}
	pairs := pools.CandidatePairs(pp.in, pp.out)
	out := make([][2]CurrencyView, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, [2]CurrencyView{currencyView(p[0]), currencyView(p[1])})
	}
	httputil.HandleSuccess(c, out)
}
