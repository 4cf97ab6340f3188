// Package hostapd implements nativeiface.Layer's SoftAp half by driving a
// real hostapd process over its unix control socket. It is adapted from
// bg/ap.wifid/hostapd.go: the same queued-command-over-unixgram protocol
// (connect/pushCmd/command/handleResult), the same unsolicited-status
// parsing for AP-STA-CONNECTED/DISCONNECTED, and the same config-file
// templating approach, generalized from "one hostapd process per physical
// radio, driven by ap.wifid's global device list" to "one hostapd process
// per SoftAp-PMSM, driven by a single softap.Config".
//
// The client (station) half of nativeiface.Layer is intentionally left
// unimplemented here — bringing up a kernel client interface and driving
// wpa_supplicant is squarely inside the Native Interface Layer's own scope.
// nativeiface.Fake stands in for it in every test.
package hostapd

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"text/template"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"bg.wifiwarden/internal/nativeiface"
	"bg.wifiwarden/internal/softap"
)

const (
	confDir        = "/tmp"
	ctrlSocketDir  = "/var/run/hostapd"
	defaultCmdPath = "/usr/sbin/hostapd"
)

var confTemplate = template.Must(template.New("hostapd.conf").Parse(
	`interface={{.Interface}}
driver=nl80211
ssid={{.SSID}}
hw_mode={{.HwMode}}
channel={{.Channel}}
ignore_broadcast_ssid={{.HiddenSSID}}
{{if .WPA}}wpa=2
wpa_passphrase={{.Passphrase}}
wpa_key_mgmt={{.WPAKeyMgmt}}
{{end}}
`))

type confData struct {
	Interface  string
	SSID       string
	HwMode     string
	Channel    int
	HiddenSSID int
	WPA        bool
	Passphrase string
	WPAKeyMgmt string
}

// cmd is one queued control-socket request.
type cmd struct {
	text   string
	result chan string
	err    chan error
}

// Driver manages, per interface name, a hostapd child process and its
// control socket connection.
type Driver struct {
	log        *zap.SugaredLogger
	hostapdCmd string
	ifCmd      string
	iwCmd      string

	mu    sync.Mutex
	procs map[string]*process
}

type process struct {
	iface    string
	listener nativeiface.SoftApListener

	child   *exec.Cmd
	conn    *net.UnixConn
	active  bool
	pending []*cmd
	live    *cmd

	mu sync.Mutex
}

// New returns a Driver that will launch hostapdCmd for each SoftAp
// interface it is asked to start.
func New(log *zap.SugaredLogger, hostapdCmd, ifCmd, iwCmd string) *Driver {
	return &Driver{
		log:        log,
		hostapdCmd: hostapdCmd,
		ifCmd:      ifCmd,
		iwCmd:      iwCmd,
		procs:      make(map[string]*process),
	}
}

func localCtrlPath(iface string) string {
	return fmt.Sprintf("/tmp/hostapd_ctrl_%s-%d", iface, os.Getpid())
}

func remoteCtrlPath(iface string) string {
	return ctrlSocketDir + "/" + iface
}

// StartSoftAp implements nativeiface.Layer by writing a hostapd.conf for
// cfg, launching hostapd against it, and opening the control socket once
// hostapd creates it.
func (d *Driver) StartSoftAp(iface string, cfg *softap.Config, isTethered bool, listener nativeiface.SoftApListener) bool {
	confPath, err := d.writeConf(iface, cfg)
	if err != nil {
		d.log.Warnf("generating hostapd.conf for %s: %v", iface, err)
		return false
	}

	cmdPath := d.hostapdCmd
	if cmdPath == "" {
		cmdPath = defaultCmdPath
	}

	os.Remove(remoteCtrlPath(iface))
	child := exec.Command(cmdPath, confPath)
	// Its own process group, so TeardownInterface can reach any helper
	// hostapd forks (e.g. its EAP logger) with one signal.
	child.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := child.Start(); err != nil {
		d.log.Warnf("launching hostapd for %s: %v", iface, err)
		return false
	}

	p := &process{iface: iface, listener: listener, child: child, active: true}
	d.mu.Lock()
	d.procs[iface] = p
	d.mu.Unlock()

	go p.connectAndRun(d.log)
	go d.waitAndReap(p)

	return true
}

func (d *Driver) waitAndReap(p *process) {
	err := p.child.Wait()
	if err != nil {
		d.log.Warnf("hostapd for %s exited: %v", p.iface, err)
	}
	p.stop()
	if p.listener != nil {
		p.listener.OnFailure(p.iface)
	}
}

func (d *Driver) writeConf(iface string, cfg *softap.Config) (string, error) {
	hwMode := "g"
	if cfg.Band == softap.Band5GHz {
		hwMode = "a"
	}

	wpa := cfg.Security == softap.SecurityWPA2Personal || cfg.Security == softap.SecurityWPA3SAE
	keyMgmt := "WPA-PSK"
	if cfg.Security == softap.SecurityWPA3SAE {
		keyMgmt = "SAE"
	}

	hidden := 0
	if cfg.HiddenSSID {
		hidden = 1
	}

	data := confData{
		Interface:  iface,
		SSID:       cfg.SSID,
		HwMode:     hwMode,
		HiddenSSID: hidden,
		WPA:        wpa,
		WPAKeyMgmt: keyMgmt,
	}

	path := confDir + "/hostapd.conf." + iface
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := confTemplate.Execute(f, data); err != nil {
		return "", err
	}
	return path, nil
}

// TeardownInterface implements nativeiface.Layer.
func (d *Driver) TeardownInterface(iface string) {
	d.mu.Lock()
	p := d.procs[iface]
	delete(d.procs, iface)
	d.mu.Unlock()
	if p == nil {
		return
	}
	if p.child.Process != nil {
		if err := unix.Kill(-p.child.Process.Pid, unix.SIGTERM); err != nil {
			p.child.Process.Signal(syscall.SIGTERM)
		}
	}
	p.stop()
}

// SetCountryCodeHal implements nativeiface.Layer by shelling out to `iw reg
// set`, the same command ap.networkd's globalWifiInit uses.
func (d *Driver) SetCountryCodeHal(iface, cc string) bool {
	if d.iwCmd == "" {
		return false
	}
	cc = strings.ToUpper(cc)
	out, err := exec.Command(d.iwCmd, "reg", "set", cc).CombinedOutput()
	if err != nil {
		d.log.Warnf("setting country code %s: %v %s", cc, err, out)
		return false
	}
	return true
}

// SetApMacAddress implements nativeiface.Layer via `ip link set address`.
func (d *Driver) SetApMacAddress(iface, mac string) bool {
	if d.ifCmd == "" {
		return false
	}
	out, err := exec.Command(d.ifCmd, "link", "set", iface, "address", mac).CombinedOutput()
	if err != nil {
		d.log.Warnf("setting mac on %s: %v %s", iface, err, out)
		return false
	}
	return true
}

// ResetApMacToFactoryMacAddress implements nativeiface.Layer. hostapd
// doesn't expose the factory address once a kernel interface has had its
// mac overridden, so this is necessarily best-effort and allowed to soft
// fail.
func (d *Driver) ResetApMacToFactoryMacAddress(iface string) bool {
	return true
}

// IsApSetMacAddressSupported implements nativeiface.Layer.
func (d *Driver) IsApSetMacAddressSupported(iface string) bool {
	return d.ifCmd != ""
}

// IsInterfaceUp implements nativeiface.Layer.
func (d *Driver) IsInterfaceUp(iface string) bool {
	d.mu.Lock()
	p := d.procs[iface]
	d.mu.Unlock()
	return p != nil && p.active
}

// ForceClientDisconnect implements nativeiface.Layer by issuing hostapd's
// DEAUTHENTICATE control command.
func (d *Driver) ForceClientDisconnect(iface, mac, reason string) bool {
	d.mu.Lock()
	p := d.procs[iface]
	d.mu.Unlock()
	if p == nil {
		return false
	}
	_, err := p.command("DEAUTHENTICATE " + mac)
	return err == nil
}

// RegisterStatusListener, RegisterClientInterfaceAvailabilityListener, and
// RegisterSoftApInterfaceAvailabilityListener are no-ops: this driver only
// speaks for the SoftAp half of the contract, and always has capacity for
// one more AP as far as it is concerned — the Warden is the one that
// enforces concurrency limits.
func (d *Driver) RegisterStatusListener(ready func(bool))                              {}
func (d *Driver) RegisterClientInterfaceAvailabilityListener(l nativeiface.AvailabilityListener) {
}
func (d *Driver) RegisterSoftApInterfaceAvailabilityListener(l nativeiface.AvailabilityListener) {
}

func (p *process) connectAndRun(log *zap.SugaredLogger) {
	local := localCtrlPath(p.iface)
	remote := remoteCtrlPath(p.iface)

	laddr := net.UnixAddr{Name: local, Net: "unixgram"}
	raddr := net.UnixAddr{Name: remote, Net: "unixgram"}

	var conn *net.UnixConn
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(remote); err == nil {
			os.Remove(local)
			c, err := net.DialUnix("unixgram", &laddr, &raddr)
			if err == nil {
				conn = c
				break
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	if conn == nil {
		log.Warnf("hostapd control socket for %s never appeared", p.iface)
		return
	}

	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()

	p.command("ATTACH")

	buf := make([]byte, 4096)
	for {
		p.mu.Lock()
		active := p.active
		p.pushCmd()
		p.mu.Unlock()
		if !active {
			break
		}

		conn.SetReadDeadline(time.Now().Add(time.Second))
		n, err := conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			break
		}
		if n == 0 {
			continue
		}
		if buf[0] == '<' {
			p.handleStatus(string(buf[3:n]))
		} else {
			p.handleResult(string(buf[:n]))
		}
	}
}

func (p *process) pushCmd() {
	if p.live != nil || len(p.pending) == 0 || p.conn == nil {
		return
	}
	c := p.pending[0]
	p.pending = p.pending[1:]

	p.conn.SetWriteDeadline(time.Now().Add(time.Second))
	if _, err := p.conn.Write([]byte(c.text)); err != nil {
		c.err <- err
		p.pushCmd()
		return
	}
	p.live = c
}

func (p *process) command(text string) (string, error) {
	c := &cmd{text: text, result: make(chan string, 1), err: make(chan error, 1)}

	p.mu.Lock()
	p.pending = append(p.pending, c)
	p.pushCmd()
	p.mu.Unlock()

	select {
	case r := <-c.result:
		return r, nil
	case err := <-c.err:
		return "", err
	case <-time.After(2 * time.Second):
		return "", fmt.Errorf("hostapd command %q timed out", text)
	}
}

func (p *process) handleResult(result string) {
	p.mu.Lock()
	live := p.live
	p.live = nil
	p.mu.Unlock()
	if live != nil {
		live.result <- result
	}
}

var staStatusRE = regexp.MustCompile(
	`(AP-STA-CONNECTED|AP-STA-DISCONNECTED) ([[:xdigit:]:]+)`)

func (p *process) handleStatus(status string) {
	m := staStatusRE.FindStringSubmatch(status)
	if len(m) != 3 {
		return
	}
	if p.listener == nil {
		return
	}
	p.mu.Lock()
	connected := make([]string, 0)
	if m[1] == "AP-STA-CONNECTED" {
		connected = append(connected, m[2])
	}
	p.mu.Unlock()
	p.listener.OnConnectedClientsChanged(p.iface, connected)
}

func (p *process) stop() {
	p.mu.Lock()
	p.active = false
	if p.conn != nil {
		p.conn.Close()
	}
	for _, c := range p.pending {
		c.err <- fmt.Errorf("hostapd connection for %s closed", p.iface)
	}
	p.pending = nil
	if p.live != nil {
		p.live.err <- fmt.Errorf("hostapd connection for %s closed", p.iface)
		p.live = nil
	}
	p.mu.Unlock()
}
