package dataflow

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestDataflowSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dataflow Suite")
}
