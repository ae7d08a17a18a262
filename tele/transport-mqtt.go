package tele

import (
	"context"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/telloctl/helpers"
	"github.com/temoto/telloctl/log2"
	tele_config "github.com/temoto/telloctl/tele/config"
)

const defaultClientID = "telloctl"

type transportMqtt struct {
	log            *log2.Log
	m              mqtt.Client
	mopt           *mqtt.ClientOptions
	networkTimeout time.Duration
	stopCh         chan struct{}
	doneCh         chan struct{}

	topicState     string
	topicTelemetry string
}

func (self *transportMqtt) Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config, willPayload []byte) error {
	if teleConfig.MqttBroker == "" {
		return errors.NotValidf("tele mqtt_broker=empty")
	}
	self.log = log
	mqttLog := log.Clone(log2.LError)
	mqtt.CRITICAL = mqttLog
	mqtt.ERROR = mqttLog
	mqtt.WARN = mqttLog
	if teleConfig.MqttLogDebug {
		mqtt.DEBUG = log.Clone(log2.LDebug)
	}

	clientID := teleConfig.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}
	self.topicState = teleConfig.Topic("state")
	self.topicTelemetry = teleConfig.Topic("telemetry")
	self.networkTimeout = teleConfig.NetworkTimeout()
	connectTimeout := self.networkTimeout * 3

	self.mopt = mqtt.NewClientOptions().
		AddBroker(teleConfig.MqttBroker).
		SetAutoReconnect(true).
		SetBinaryWill(self.topicState, willPayload, 1, true).
		SetCleanSession(true).
		SetClientID(clientID).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(teleConfig.Keepalive()).
		SetMaxReconnectInterval(connectTimeout).
		SetPingTimeout(self.networkTimeout).
		SetWriteTimeout(self.networkTimeout).
		SetOnConnectHandler(func(mqtt.Client) { self.log.Infof("tele mqtt connected broker=%s", teleConfig.MqttBroker) }).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) { self.log.Errorf("tele mqtt connection lost err=%v", err) })
	if teleConfig.MqttUsername != "" {
		self.mopt.SetUsername(teleConfig.MqttUsername)
		self.mopt.SetPassword(teleConfig.MqttPassword)
	}
	self.m = mqtt.NewClient(self.mopt)
	self.stopCh = make(chan struct{})
	self.doneCh = make(chan struct{})

	go self.online()
	return nil
}

func (self *transportMqtt) Close() {
	close(self.stopCh)
	<-self.doneCh
	self.m.Disconnect(uint(self.networkTimeout / time.Millisecond))
}

func (self *transportMqtt) SendState(payload []byte) bool {
	if !self.m.IsConnected() {
		return false
	}
	t := self.m.Publish(self.topicState, 1, true, payload)
	return self.tokenWait(t, "publish state") == nil
}

func (self *transportMqtt) SendTelemetry(payload []byte) bool {
	if !self.m.IsConnected() {
		return false
	}
	t := self.m.Publish(self.topicTelemetry, 0, false, payload)
	return self.tokenWait(t, "publish telemetry") == nil
}

// online retries first connect, later reconnects are done by paho.
func (self *transportMqtt) online() {
	defer close(self.doneCh)
	b := helpers.Backoff{Min: time.Second, Max: self.networkTimeout, K: 2}
	for self.isRunning() {
		t := self.m.Connect()
		if self.tokenWait(t, "connect") == nil {
			return // success path
		}
		b.Failure()
		select {
		case <-time.After(b.DelayBefore()):
		case <-self.stopCh:
			return
		}
	}
}

func (self *transportMqtt) isRunning() bool {
	select {
	case <-self.stopCh:
		return false
	default:
		return true
	}
}

func (self *transportMqtt) tokenWait(t mqtt.Token, tag string) error {
	if !t.WaitTimeout(self.networkTimeout) {
		err := errors.Timeoutf("tele mqtt %s", tag)
		self.log.Errorf("%s", err.Error())
		return err
	}
	if err := t.Error(); err != nil {
		err = errors.Annotatef(err, "tele mqtt %s", tag)
		self.log.Errorf("%s", err.Error())
		return err
	}
	return nil
}
