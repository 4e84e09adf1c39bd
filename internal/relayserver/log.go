package relayserver

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "relayserver")
