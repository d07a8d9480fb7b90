package alloc

import "os"

// Runtime debug flag for allocation logging - controlled by KHEAP_LOG_ALLOC env var.
// Messages go to internal/logger at debug level.
var logAlloc = os.Getenv("KHEAP_LOG_ALLOC") != ""
