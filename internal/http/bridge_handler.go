package http

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/engine"
	"github.com/hxuan190/quote-engine/internal/http/httputil"
)

// BridgeAPI is the part of the bridge client served over HTTP.
type BridgeAPI interface {
	Routes(ctx context.Context, origin, destination domain.ChainID, originToken, destinationToken string) ([]domain.BridgeRoute, error)
	Calldata(ctx context.Context, req domain.CalldataRequest) (*domain.CalldataResponse, error)
}

// StatusChecker reduces the status of a submitted order.
type StatusChecker interface {
	Check(ctx context.Context, chainName, txHash string) (domain.BridgeStatus, *domain.BridgeStatusReport, error)
}

type BridgeHandler struct {
	engine  *engine.Engine
	bridge  BridgeAPI
	tracker StatusChecker
}

func NewBridgeHandler(e *engine.Engine, bridge BridgeAPI, tracker StatusChecker) *BridgeHandler {
	return &BridgeHandler{engine: e, bridge: bridge, tracker: tracker}
}

func (h *BridgeHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("/calldata", h.buildCalldata)
	pub.GET("/status/:chainName", h.getStatus)
	pub.GET("/routes", h.listRoutes)
}

func (h *BridgeHandler) Root() string {
	return "/bridge"
}

// CalldataRequest asks for the transaction of a resolved cross-chain quote
type CalldataRequest struct {
	// Hash of a quote previously resolved to a bridge order
	QuoteHash string `json:"quoteHash" binding:"required"`
	// Wallet that signs and submits the transaction
	Account string `json:"account" binding:"required" example:"0x0000000000000000000000000000000000000001"`
	// Receiver on the destination chain; defaults to account
	Recipient string `json:"recipient"`
	// Overrides the slippage of the quote
	SlippageBps *uint32 `json:"slippageBps" example:"50"`
}

// StatusResponse is the reduced status of a submitted order
type StatusResponse struct {
	TxHash   string                     `json:"txHash"`
	Chain    string                     `json:"chain" example:"ethereum"`
	Status   domain.BridgeStatus        `json:"status" enums:"PENDING,BRIDGE_PENDING,SUCCESS,PARTIAL_SUCCESS,FAILED"`
	Terminal bool                       `json:"terminal"`
	Report   *domain.BridgeStatusReport `json:"report,omitempty"`
}

// @Summary Build cross-chain calldata
// @Description Builds the executable transaction of a resolved cross-chain quote.
// @Tags bridge
// @Accept json
// @Produce json
// @Param request body CalldataRequest true "Calldata request"
// @Success 200 {object} domain.CalldataResponse
// @Failure 400 {object} httputil.Response
// @Failure 404 {object} httputil.Response "Quote not resolved"
// @Failure 422 {object} httputil.Response "Quote is not a cross-chain order"
// @Router /api/v1/bridge/calldata [post]
func (h *BridgeHandler) buildCalldata(c *gin.Context) {
	var req CalldataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.SlippageBps != nil && *req.SlippageBps >= domain.BpsDenominator {
		httputil.HandleBadRequest(c, "invalid slippageBps")
		return
	}

	order, ok := h.engine.Latest(req.QuoteHash)
	if !ok {
		httputil.HandleNotFound(c, "quote not resolved")
		return
	}
	bo, ok := order.(*domain.BridgeOrder)
	if !ok {
		httputil.HandleError(c, domain.NewBridgeTradeError("quote is not a cross-chain order"))
		return
	}

	slippage := bo.SlippageBps
	if req.SlippageBps != nil {
		slippage = *req.SlippageBps
	}
	recipient := req.Recipient
	if recipient == "" {
		recipient = req.Account
	}

	resp, err := h.bridge.Calldata(c.Request.Context(), domain.CalldataRequest{
		Account:     req.Account,
		Recipient:   recipient,
		SlippageBps: slippage,
		Order:       bo,
	})
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	httputil.HandleSuccess(c, resp)
}

// @Summary Get bridge order status
// @Tags bridge
// @Produce json
// @Param chainName path string true "Origin chain name" example("ethereum")
// @Param txHash query string true "Submission transaction hash"
// @Success 200 {object} StatusResponse
// @Failure 400 {object} httputil.Response
// @Failure 502 {object} httputil.Response "Bridge unavailable"
// @Router /api/v1/bridge/status/{chainName} [get]
func (h *BridgeHandler) getStatus(c *gin.Context) {
	chain := c.Param("chainName")
	txHash := c.Query("txHash")
	if txHash == "" {
		httputil.HandleBadRequest(c, "txHash is required")
		return
	}

	status, report, err := h.tracker.Check(c.Request.Context(), chain, txHash)
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	httputil.HandleSuccess(c, StatusResponse{
		TxHash:   txHash,
		Chain:    chain,
		Status:   status,
		Terminal: status.IsTerminal(),
		Report:   report,
	})
}

// @Summary List bridge routes
// @Tags bridge
// @Produce json
// @Param originChainId query int true "Origin chain id"
// @Param destinationChainId query int true "Destination chain id"
// @Param originToken query string false "Origin token filter"
// @Param destinationToken query string false "Destination token filter"
// @Success 200 {array} domain.BridgeRoute
// @Router /api/v1/bridge/routes [get]
func (h *BridgeHandler) listRoutes(c *gin.Context) {
	origin, err := strconv.ParseUint(c.Query("originChainId"), 10, 64)
	if err != nil {
		httputil.HandleBadRequest(c, "invalid originChainId")
		return
	}
	dest, err := strconv.ParseUint(c.Query("destinationChainId"), 10, 64)
	if err != nil {
		httputil.HandleBadRequest(c, "invalid destinationChainId")
		return
	}

	filter := func(chainID uint64, token string) (string, error) {
		if token == "" {
			return "", nil
		}
		return common.NormalizeAddress(domain.ChainID(chainID), token)
	}
	originToken, err := filter(origin, c.Query("originToken"))
	if err != nil {
		httputil.HandleBadRequest(c, "invalid originToken")
		return
	}
	destToken, err := filter(dest, c.Query("destinationToken"))
	if err != nil {
		httputil.HandleBadRequest(c, "invalid destinationToken")
		return
	}

	routes, err := h.bridge.Routes(c.Request.Context(), domain.ChainID(origin), domain.ChainID(dest), originToken, destToken)
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	httputil.HandleSuccess(c, routes)
}
