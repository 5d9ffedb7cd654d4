package main

import (
	"testing"

	_ "github.com/odyssey-erp/freightdesk/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	main()
}
