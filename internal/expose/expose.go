package expose

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	log "github.com/ChainSafe/log15"
	"github.com/gin-gonic/gin"
	"github.com/mapprotocol/compass-notary/core"
	"github.com/mapprotocol/compass-notary/internal/notary"
	"github.com/mapprotocol/compass-notary/pkg/msg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager is the read side of core.NotaryMgr
type Manager interface {
	Health() core.Health
	Chain(id msg.ChainId) (core.Chain, bool)
	Chains() []core.Chain
}

type statusReader interface {
	Status() notary.ChainStatus
}

type proposalReader interface {
	GetProposalInfo(typ notary.ProposalType, seq int64) (*notary.ProposalInfo, bool)
}

type ProposalOfRequest struct {
	Chain string `form:"chain" binding:"required"`
	Type  string `form:"type" binding:"required"`
	Seq   string `form:"seq" binding:"required"`
}

type Expose struct {
	mgr        Manager
	staleAfter time.Duration
	now        func() time.Time
	log        log.Logger
	srv        *http.Server
}

// New serves mgr; the service reports unhealthy once the fast timer has been
// silent for staleAfter.
func New(mgr Manager, staleAfter time.Duration) *Expose {
	return &Expose{
		mgr:        mgr,
		staleAfter: staleAfter,
		now:        time.Now,
		log:        log.Root().New("func", "expose"),
	}
}

func (e *Expose) Router(gatherer prometheus.Gatherer) *gin.Engine {
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/health", e.Health)
	g.GET("/proposal", e.Proposal)
	if gatherer != nil {
		g.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return g
}

// Start serves on port in the background, a listen failure is sent to sysErr
func (e *Expose) Start(port int, gatherer prometheus.Gatherer, sysErr chan<- error) {
	e.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           e.Router(gatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		e.log.Info("Expose server started", "port", port)
		if err := e.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.log.Error("Expose server exited", "err", err)
			select {
			case sysErr <- err:
			default:
			}
		}
	}()
}

func (e *Expose) Stop(ctx context.Context) error {
	if e.srv == nil {
		return nil
	}
	return e.srv.Shutdown(ctx)
}

func (e *Expose) Health(c *gin.Context) {
	health := e.mgr.Health()
	statuses := make([]notary.ChainStatus, 0)
	for _, chain := range e.mgr.Chains() {
		if sr, ok := chain.(statusReader); ok {
			statuses = append(statuses, sr.Status())
		}
	}

	code := http.StatusOK
	if health.LastUpdateTime == 0 || e.now().UnixMilli()-health.LastUpdateTime > e.staleAfter.Milliseconds() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, Success(map[string]interface{}{
		"health": health,
		"chains": statuses,
	}))
}

func (e *Expose) Proposal(c *gin.Context) {
	var req ProposalOfRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Error2Response(err))
		return
	}
	id, err := msg.ParseChainId(req.Chain)
	if err != nil {
		c.JSON(http.StatusBadRequest, Error2Response(err))
		return
	}
	typ, err := notary.ParseProposalType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, Error2Response(err))
		return
	}
	seq, err := strconv.ParseInt(req.Seq, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Error2Response(err))
		return
	}

	chain, ok := e.mgr.Chain(id)
	if !ok {
		c.JSON(http.StatusNotFound, Error2Response(fmt.Errorf("chain %s not found", id)))
		return
	}
	pr, ok := chain.(proposalReader)
	if !ok {
		c.JSON(http.StatusNotFound, Error2Response(fmt.Errorf("chain %s keeps no proposals", id)))
		return
	}
	info, ok := pr.GetProposalInfo(typ, seq)
	if !ok {
		c.JSON(http.StatusNotFound, Error2Response(fmt.Errorf("%s proposal %d not tracked", typ, seq)))
		return
	}
	c.JSON(http.StatusOK, Success(map[string]interface{}{
		"proposal": info,
		"hash":     info.Hash().Hex(),
	}))
}

func Success(data interface{}) interface{} {
	return map[string]interface{}{
		"code": 0,
		"msg":  "success",
		"data": data,
	}
}

func Error2Response(err error) interface{} {
	return map[string]interface{}{
		"code": 500,
		"msg":  err.Error(),
	}
}
