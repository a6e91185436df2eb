package jsonrpc

// Method is a JSON-RPC method name as exposed to callers and sent upstream.
type Method string

// Cached methods go through the recorder before the upstream node.
const (
	MethodGetBalance           Method = "eth_getBalance"
	MethodGetStorageAt         Method = "eth_getStorageAt"
	MethodGetTransactionCount  Method = "eth_getTransactionCount"
	MethodGetCode              Method = "eth_getCode"
	MethodGetBlockByNumber     Method = "eth_getBlockByNumber"
	MethodGetTransactionByHash Method = "eth_getTransactionByHash"
	MethodGetAccount           Method = "eth_getAccount"
	MethodTraceBlockByNumber   Method = "debug_traceBlockByNumber"
	MethodTraceCall            Method = "debug_traceCall"
)

// Passthrough methods are never recorded.
const (
	MethodBlockNumber Method = "eth_blockNumber"
	MethodGasPrice    Method = "eth_gasPrice"
	MethodChainID     Method = "eth_chainId"
)

func (m Method) String() string { return string(m) }
