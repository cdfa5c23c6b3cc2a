package main

import (
	"github.com/sirupsen/logrus"

	"induction-portal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logrus.WithError(err).Fatal("portal failed")
	}
}
