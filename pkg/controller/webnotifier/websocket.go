/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"nhooyr.io/websocket"

	"github.com/hyperledger/aries-vcx-go/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/rest"
)

// WSNotifier pushes topic messages to every connected websocket client.
type WSNotifier struct {
	conns     []*websocket.Conn
	connsLock sync.RWMutex
	handlers  []rest.Handler
}

// NewWSNotifier returns a WSNotifier accepting clients at path.
func NewWSNotifier(path string) *WSNotifier {
	n := &WSNotifier{}
	n.handlers = []rest.Handler{cmdutil.NewHTTPHandler(path, http.MethodGet, n.accept)}

	return n
}

// Notify writes the topic message to every client. A client that cannot be written to is reported
// but does not stop delivery to the others.
func (n *WSNotifier) Notify(topic string, message []byte) error {
	if topic == "" {
		return fmt.Errorf(emptyTopicErrMsg)
	}

	if len(message) == 0 {
		return fmt.Errorf(emptyMessageErrMsg)
	}

	topicMsg, err := PrepareTopicMessage(topic, message)
	if err != nil {
		return fmt.Errorf(failedToCreateErrMsg, err)
	}

	n.connsLock.RLock()
	conns := append(n.conns[:0:0], n.conns...)
	n.connsLock.RUnlock()

	var allErrs error

	for _, conn := range conns {
		allErrs = appendError(allErrs, write(conn, topicMsg))
	}

	return allErrs
}

func write(conn *websocket.Conn, message []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), notificationSendTimeout)
	defer cancel()

	return conn.Write(ctx, websocket.MessageText, message)
}

func (n *WSNotifier) accept(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		logger.Infof("websocket upgrade failed: %s", err)

		return
	}

	n.connsLock.Lock()
	n.conns = append(n.conns, conn)
	n.connsLock.Unlock()

	logger.Debugf("websocket client connected")

	// clients only listen; the first read returns when the client goes away.
	_, _, err = conn.Reader(context.Background())
	if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		logger.Infof("websocket client read failed: %s", err)
	}

	if err := conn.Close(websocket.StatusPolicyViolation, "unexpected message"); err != nil {
		logger.Debugf("closing websocket client: %s", err)
	}

	n.remove(conn)
}

func (n *WSNotifier) remove(conn *websocket.Conn) {
	n.connsLock.Lock()
	defer n.connsLock.Unlock()

	for i, c := range n.conns {
		if c == conn {
			n.conns = append(n.conns[:i], n.conns[i+1:]...)

			break
		}
	}

	logger.Debugf("websocket client dropped")
}

// GetRESTHandlers returns the websocket endpoint.
func (n *WSNotifier) GetRESTHandlers() []rest.Handler {
	return n.handlers
}
