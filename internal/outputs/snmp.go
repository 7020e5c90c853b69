package outputs

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/speedsleuth/speed-sleuth/internal/config"
	"github.com/speedsleuth/speed-sleuth/internal/metrics"
	"github.com/speedsleuth/speed-sleuth/internal/models"
)

// SNMPOutput provides an SNMP agent for polling recent run results
type SNMPOutput struct {
	config  *config.SNMPConfig
	cache   *metrics.RunCache
	mu      sync.RWMutex
	maxSize int
	done    chan struct{}
	wg      sync.WaitGroup

	// Per-provider statistics; providerOrder fixes the table indexes
	stats         map[string]*providerStats
	providerOrder []string

	snmpConn   *net.UDPConn
	httpServer *http.Server

	// Scalar OID handlers
	oidTree map[string]oidHandler
}

type providerStats struct {
	TotalRuns       int64
	SuccessfulRuns  int64
	FailedRuns      int64
	LastSuccessTime time.Time
	LastFailureTime time.Time
	LastDurationMs  int64
	AvgDurationMs   float64
	MaxDurationMs   int64
	MinDurationMs   int64
}

// oidHandler is a function that returns a value for an OID
type oidHandler func() interface{}

// OID layout under the enterprise OID (.1.3.6.1.4.1.99999):
//
//	.1 general statistics (scalars)
//	.2 per-provider statistics table (.2.<index>.<metric>)
//	.3 recent runs table (.3.<index>.<metric>)
const (
	baseOID = ".1.3.6.1.4.1.99999"

	generalStatsOID = baseOID + ".1"
	cacheSizeOID    = generalStatsOID + ".1.0"
	maxCacheSizeOID = generalStatsOID + ".2.0"
	providerCount   = generalStatsOID + ".3.0"
	totalRuns       = generalStatsOID + ".4.0"
	totalSuccesses  = generalStatsOID + ".5.0"
	totalFailures   = generalStatsOID + ".6.0"

	providerStatsOID = baseOID + ".2"
	recentRunsOID    = baseOID + ".3"
)

const (
	providerStatsMetrics = 10
	recentRunMetrics     = 5
)

// NewSNMPOutput creates a new SNMP agent. cacheSize bounds the recent-runs
// table served over SNMP.
func NewSNMPOutput(cfg *config.SNMPConfig, cacheSize int) (*SNMPOutput, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	if cacheSize <= 0 {
		cacheSize = 100
	}

	s := &SNMPOutput{
		config:  cfg,
		cache:   metrics.NewRunCache(cacheSize),
		maxSize: cacheSize,
		done:    make(chan struct{}),
		stats:   make(map[string]*providerStats),
		oidTree: make(map[string]oidHandler),
	}

	s.initializeOIDTree()

	if err := s.startSNMPServer(); err != nil {
		return nil, fmt.Errorf("failed to start SNMP server: %w", err)
	}

	if err := s.startHTTPServer(); err != nil {
		log.Printf("Warning: Failed to start SNMP HTTP API server: %v", err)
	}

	log.Printf("SNMP agent listening on %s:%d (community: %s)", cfg.ListenAddress, cfg.Port, cfg.Community)

	return s, nil
}

// initializeOIDTree registers handlers for the general statistic scalars
func (s *SNMPOutput) initializeOIDTree() {
	s.oidTree[cacheSizeOID] = func() interface{} {
		return s.cache.Count()
	}

	s.oidTree[maxCacheSizeOID] = func() interface{} {
		return s.maxSize
	}

	s.oidTree[providerCount] = func() interface{} {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return len(s.stats)
	}

	s.oidTree[totalRuns] = func() interface{} {
		return s.sumStats(func(st *providerStats) int64 { return st.TotalRuns })
	}

	s.oidTree[totalSuccesses] = func() interface{} {
		return s.sumStats(func(st *providerStats) int64 { return st.SuccessfulRuns })
	}

	s.oidTree[totalFailures] = func() interface{} {
		return s.sumStats(func(st *providerStats) int64 { return st.FailedRuns })
	}
}

func (s *SNMPOutput) sumStats(field func(*providerStats) int64) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, st := range s.stats {
		total += field(st)
	}
	return total
}

// startSNMPServer starts the SNMP UDP listener
func (s *SNMPOutput) startSNMPServer() error {
	addr := fmt.Sprintf("%s:%d", s.config.ListenAddress, s.config.Port)
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}

	s.snmpConn = conn

	s.wg.Add(1)
	go s.handleSNMPPackets()

	return nil
}

// handleSNMPPackets processes incoming SNMP requests
func (s *SNMPOutput) handleSNMPPackets() {
	defer s.wg.Done()
	defer s.snmpConn.Close()

	buffer := make([]byte, 65535)

	for {
		select {
		case <-s.done:
			return
		default:
			// Read deadline keeps the done channel responsive
			s.snmpConn.SetReadDeadline(time.Now().Add(1 * time.Second))

			n, remoteAddr, err := s.snmpConn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				log.Printf("SNMP read error: %v", err)
				continue
			}

			packet := make([]byte, n)
			copy(packet, buffer[:n])
			go s.processSNMPPacket(packet, remoteAddr)
		}
	}
}

// processSNMPPacket handles a single SNMP request
func (s *SNMPOutput) processSNMPPacket(data []byte, remoteAddr *net.UDPAddr) {
	packet, err := gosnmp.UnmarshalMessage(data)
	if err != nil {
		log.Printf("Failed to unmarshal SNMP packet: %v", err)
		return
	}

	if packet.Community != s.config.Community {
		log.Printf("SNMP request with invalid community from %s", remoteAddr)
		return
	}

	var response *gosnmp.SnmpPacket
	switch packet.PDUType {
	case gosnmp.GetRequest:
		response = s.handleGetRequest(packet)
	case gosnmp.GetNextRequest:
		response = s.handleGetNextRequest(packet)
	case gosnmp.GetBulkRequest:
		response = s.handleGetBulkRequest(packet)
	default:
		log.Printf("Unsupported SNMP PDU type: %v", packet.PDUType)
		return
	}

	if response == nil {
		return
	}

	responseData, err := response.MarshalMsg()
	if err != nil {
		log.Printf("Failed to marshal SNMP response: %v", err)
		return
	}

	if _, err := s.snmpConn.WriteToUDP(responseData, remoteAddr); err != nil {
		log.Printf("Failed to send SNMP response: %v", err)
	}
}

func (s *SNMPOutput) responsePacket(packet *gosnmp.SnmpPacket) *gosnmp.SnmpPacket {
	return &gosnmp.SnmpPacket{
		Version:   packet.Version,
		Community: packet.Community,
		PDUType:   gosnmp.GetResponse,
		RequestID: packet.RequestID,
		Variables: make([]gosnmp.SnmpPDU, 0, len(packet.Variables)),
	}
}

// handleGetRequest processes SNMP GET requests
func (s *SNMPOutput) handleGetRequest(packet *gosnmp.SnmpPacket) *gosnmp.SnmpPacket {
	response := s.responsePacket(packet)
	for _, reqVar := range packet.Variables {
		response.Variables = append(response.Variables, s.getOIDValue(reqVar.Name))
	}
	return response
}

// handleGetNextRequest processes SNMP GETNEXT requests
func (s *SNMPOutput) handleGetNextRequest(packet *gosnmp.SnmpPacket) *gosnmp.SnmpPacket {
	response := s.responsePacket(packet)
	for _, reqVar := range packet.Variables {
		response.Variables = append(response.Variables, s.getNextOID(reqVar.Name))
	}
	return response
}

// handleGetBulkRequest processes SNMP GETBULK requests
func (s *SNMPOutput) handleGetBulkRequest(packet *gosnmp.SnmpPacket) *gosnmp.SnmpPacket {
	response := s.responsePacket(packet)

	maxReps := packet.MaxRepetitions
	if maxReps == 0 {
		maxReps = 10
	}

	for _, reqVar := range packet.Variables {
		currentOID := reqVar.Name
		for i := uint32(0); i < maxReps; i++ {
			pdu := s.getNextOID(currentOID)
			if pdu.Type == gosnmp.EndOfMibView {
				break
			}
			response.Variables = append(response.Variables, pdu)
			currentOID = pdu.Name
		}
	}

	return response
}

// getOIDValue retrieves the value for a specific OID
func (s *SNMPOutput) getOIDValue(oid string) gosnmp.SnmpPDU {
	if handler, exists := s.oidTree[oid]; exists {
		return createSNMPPDU(oid, handler())
	}

	if strings.HasPrefix(oid, providerStatsOID+".") {
		return s.getProviderStatsOID(oid)
	}

	if strings.HasPrefix(oid, recentRunsOID+".") {
		return s.getRecentRunOID(oid)
	}

	return noSuchInstance(oid)
}

// getNextOID finds the next OID in the tree
func (s *SNMPOutput) getNextOID(oid string) gosnmp.SnmpPDU {
	allOIDs := s.getAllOIDs()

	for _, nextOID := range allOIDs {
		if oidCompare(oid, nextOID) < 0 {
			return s.getOIDValue(nextOID)
		}
	}

	return gosnmp.SnmpPDU{
		Name:  oid,
		Type:  gosnmp.EndOfMibView,
		Value: nil,
	}
}

// getAllOIDs returns all available OIDs in sorted order
func (s *SNMPOutput) getAllOIDs() []string {
	s.mu.RLock()
	oids := make([]string, 0, len(s.oidTree))
	for oid := range s.oidTree {
		oids = append(oids, oid)
	}

	for i := range s.providerOrder {
		for metric := 1; metric <= providerStatsMetrics; metric++ {
			oids = append(oids, fmt.Sprintf("%s.%d.%d", providerStatsOID, i+1, metric))
		}
	}

	s.mu.RUnlock()

	for i := 0; i < s.cache.Count(); i++ {
		for metric := 1; metric <= recentRunMetrics; metric++ {
			oids = append(oids, fmt.Sprintf("%s.%d.%d", recentRunsOID, i+1, metric))
		}
	}

	sort.Slice(oids, func(i, j int) bool {
		return oidCompare(oids[i], oids[j]) < 0
	})

	return oids
}

// parseTableOID splits a table OID suffix into (index, metric)
func parseTableOID(oid, prefix string) (int, int, bool) {
	parts := strings.Split(strings.TrimPrefix(oid, prefix+"."), ".")
	if len(parts) != 2 {
		return 0, 0, false
	}

	index, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}

	metric, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}

	return index, metric, true
}

// getProviderStatsOID retrieves a provider statistics table value
func (s *SNMPOutput) getProviderStatsOID(oid string) gosnmp.SnmpPDU {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index, metric, ok := parseTableOID(oid, providerStatsOID)
	if !ok || index < 1 || index > len(s.providerOrder) {
		return noSuchInstance(oid)
	}

	name := s.providerOrder[index-1]
	st := s.stats[name]

	switch metric {
	case 1: // provider name
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.OctetString, Value: name}
	case 2: // total runs
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Counter64, Value: uint64(st.TotalRuns)}
	case 3: // successful runs
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Counter64, Value: uint64(st.SuccessfulRuns)}
	case 4: // failed runs
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Counter64, Value: uint64(st.FailedRuns)}
	case 5: // last duration
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Gauge32, Value: uint(st.LastDurationMs)}
	case 6: // average duration
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Gauge32, Value: uint(st.AvgDurationMs)}
	case 7: // min duration
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Gauge32, Value: uint(st.MinDurationMs)}
	case 8: // max duration
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Gauge32, Value: uint(st.MaxDurationMs)}
	case 9: // last success time
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Counter64, Value: uint64(st.LastSuccessTime.Unix())}
	case 10: // last failure time
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Counter64, Value: uint64(st.LastFailureTime.Unix())}
	default:
		return noSuchInstance(oid)
	}
}

// getRecentRunOID retrieves a recent-runs table value
func (s *SNMPOutput) getRecentRunOID(oid string) gosnmp.SnmpPDU {
	recent := s.cache.GetLast(s.cache.Count())

	index, metric, ok := parseTableOID(oid, recentRunsOID)
	if !ok || index < 1 || index > len(recent) {
		return noSuchInstance(oid)
	}

	record := recent[index-1]

	switch metric {
	case 1: // provider name
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.OctetString, Value: record.Provider.Name}
	case 2: // timestamp
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Counter64, Value: uint64(record.Timestamp.Unix())}
	case 3: // success
		success := 0
		if record.Status.Success {
			success = 1
		}
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Integer, Value: success}
	case 4: // duration
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Gauge32, Value: uint(record.DurationMs)}
	case 5: // exit code
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Integer, Value: record.Status.ExitCode}
	default:
		return noSuchInstance(oid)
	}
}

// createSNMPPDU wraps a handler value in a typed PDU
func createSNMPPDU(oid string, value interface{}) gosnmp.SnmpPDU {
	switch v := value.(type) {
	case int:
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Integer, Value: v}
	case int64:
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Counter64, Value: uint64(v)}
	case string:
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.OctetString, Value: v}
	default:
		return noSuchInstance(oid)
	}
}

func noSuchInstance(oid string) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.NoSuchInstance, Value: nil}
}

// oidCompare compares two OIDs numerically, component by component
func oidCompare(oid1, oid2 string) int {
	oid1 = strings.TrimPrefix(oid1, ".")
	oid2 = strings.TrimPrefix(oid2, ".")

	parts1 := strings.Split(oid1, ".")
	parts2 := strings.Split(oid2, ".")

	for i := 0; i < len(parts1) && i < len(parts2); i++ {
		n1, _ := strconv.Atoi(parts1[i])
		n2, _ := strconv.Atoi(parts2[i])

		if n1 < n2 {
			return -1
		} else if n1 > n2 {
			return 1
		}
	}

	if len(parts1) < len(parts2) {
		return -1
	} else if len(parts1) > len(parts2) {
		return 1
	}

	return 0
}

// startHTTPServer starts an HTTP API exposing the SNMP data as JSON
func (s *SNMPOutput) startHTTPServer() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/snmp/data", s.handleSNMPDataRequest)
	mux.HandleFunc("/snmp/oids", s.handleOIDListRequest)

	addr := fmt.Sprintf("%s:%d", s.config.ListenAddress, s.config.Port+1)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("SNMP HTTP server error: %v", err)
		}
	}()

	return nil
}

// snmpData is the JSON shape served by /snmp/data
type snmpData struct {
	Providers map[string]providerStats `json:"providers"`
	Recent    []*models.RunRecord      `json:"recent"`
}

func (s *SNMPOutput) handleSNMPDataRequest(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	data := snmpData{
		Providers: make(map[string]providerStats, len(s.stats)),
		Recent:    s.cache.GetLast(s.cache.Count()),
	}
	for name, st := range s.stats {
		data.Providers[name] = *st
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding SNMP data: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *SNMPOutput) handleOIDListRequest(w http.ResponseWriter, r *http.Request) {
	oids := s.getAllOIDs()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(oids); err != nil {
		log.Printf("Error encoding OID list: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Write caches the run record for SNMP polling and updates statistics
func (s *SNMPOutput) Write(record *models.RunRecord) error {
	if s == nil {
		return nil
	}

	s.cache.Add(record)

	s.mu.Lock()
	defer s.mu.Unlock()

	name := record.Provider.Name
	if _, exists := s.stats[name]; !exists {
		s.stats[name] = &providerStats{
			MinDurationMs: record.DurationMs,
			MaxDurationMs: record.DurationMs,
		}
		s.providerOrder = append(s.providerOrder, name)
	}

	st := s.stats[name]
	st.TotalRuns++
	st.LastDurationMs = record.DurationMs

	if record.Status.Success {
		st.SuccessfulRuns++
		st.LastSuccessTime = record.Timestamp
	} else {
		st.FailedRuns++
		st.LastFailureTime = record.Timestamp
	}

	if record.DurationMs < st.MinDurationMs {
		st.MinDurationMs = record.DurationMs
	}
	if record.DurationMs > st.MaxDurationMs {
		st.MaxDurationMs = record.DurationMs
	}

	st.AvgDurationMs = (st.AvgDurationMs*float64(st.TotalRuns-1) + float64(record.DurationMs)) / float64(st.TotalRuns)

	return nil
}

// Name returns the output module name
func (s *SNMPOutput) Name() string {
	return "snmp"
}

// Close shuts down the SNMP agent and its HTTP API
func (s *SNMPOutput) Close() error {
	if s == nil {
		return nil
	}

	log.Println("Shutting down SNMP agent...")

	close(s.done)
	s.wg.Wait()

	if s.httpServer != nil {
		if err := s.httpServer.Close(); err != nil {
			return err
		}
	}

	return nil
}
