package normalizer

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// nmapRun nmap -oX 输出
type nmapRun struct {
	XMLName  xml.Name   `xml:"nmaprun"`
	Args     string     `xml:"args,attr"`
	Version  string     `xml:"version,attr"`
	Hosts    []nmapHost `xml:"host"`
	Finished struct {
		Elapsed string `xml:"elapsed,attr"`
		Summary string `xml:"summary,attr"`
	} `xml:"runstats>finished"`
}

type nmapHost struct {
	Status struct {
		State string `xml:"state,attr"`
	} `xml:"status"`
	Addresses []struct {
		Addr     string `xml:"addr,attr"`
		AddrType string `xml:"addrtype,attr"`
	} `xml:"address"`
	Hostnames []struct {
		Name string `xml:"name,attr"`
	} `xml:"hostnames>hostname"`
	Ports []nmapPort `xml:"ports>port"`
}

type nmapPort struct {
	Protocol string `xml:"protocol,attr"`
	PortID   int    `xml:"portid,attr"`
	State    struct {
		State string `xml:"state,attr"`
	} `xml:"state"`
	Service struct {
		Name    string `xml:"name,attr"`
		Product string `xml:"product,attr"`
		Version string `xml:"version,attr"`
	} `xml:"service"`
}

// NmapXML 解析 nmap XML 输出为主机列表
type NmapXML struct{}

func (NmapXML) Name() string { return "nmap_xml" }

func (NmapXML) Empty() interface{} {
	return map[string]interface{}{"hosts": []interface{}{}}
}

func (NmapXML) Parse(text string) (interface{}, error) {
	var run nmapRun
	if err := xml.Unmarshal([]byte(text), &run); err != nil {
		return nil, fmt.Errorf("invalid nmap xml: %w", err)
	}

	hosts := make([]interface{}, 0, len(run.Hosts))
	for _, h := range run.Hosts {
		address := ""
		for _, a := range h.Addresses {
			// 优先使用 IP 地址，MAC 地址只在没有 IP 时使用
			if a.AddrType != "mac" || address == "" {
				address = a.Addr
			}
			if a.AddrType == "ipv4" || a.AddrType == "ipv6" {
				break
			}
		}

		hostnames := make([]interface{}, 0, len(h.Hostnames))
		for _, hn := range h.Hostnames {
			hostnames = append(hostnames, hn.Name)
		}

		ports := make([]interface{}, 0, len(h.Ports))
		for _, p := range h.Ports {
			ports = append(ports, map[string]interface{}{
				"port":     p.PortID,
				"protocol": p.Protocol,
				"state":    p.State.State,
				"service":  p.Service.Name,
				"product":  p.Service.Product,
				"version":  strings.TrimSpace(p.Service.Version),
			})
		}

		hosts = append(hosts, map[string]interface{}{
			"address":   address,
			"hostnames": hostnames,
			"status":    h.Status.State,
			"ports":     ports,
		})
	}

	return map[string]interface{}{
		"hosts":   hosts,
		"args":    run.Args,
		"summary": run.Finished.Summary,
	}, nil
}
