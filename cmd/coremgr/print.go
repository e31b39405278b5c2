package main

import (
	"fmt"
	"io"
	"strings"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func printStatusTable(w io.Writer, rows []statusRow) {
	svcW := len("SERVICE")
	stateW := len("STATE")
	cells := make([][2]string, len(rows))
	for i, r := range rows {
		cells[i] = [2]string{serviceLabel(r.Service), stateLabel(r.Status)}
		svcW = max(svcW, len(cells[i][0]))
		stateW = max(stateW, len(cells[i][1]))
	}

	sep := fmt.Sprintf("+-%s-+-%s-+\n", strings.Repeat("-", svcW), strings.Repeat("-", stateW))
	fmt.Fprint(w, sep)
	fmt.Fprintf(w, "| %s | %s |\n", pad("SERVICE", svcW), pad("STATE", stateW))
	fmt.Fprint(w, sep)
	for _, c := range cells {
		fmt.Fprintf(w, "| %s | %s |\n", pad(c[0], svcW), pad(c[1], stateW))
	}
	fmt.Fprint(w, sep)
}

func serviceLabel(svc string) string {
	switch svc {
	case "":
		return "coremgr"
	case ServiceSession:
		return "attached"
	case ServiceLoading:
		return "loading"
	default:
		return svc
	}
}

func stateLabel(st healthpb.HealthCheckResponse_ServingStatus) string {
	switch st {
	case healthpb.HealthCheckResponse_SERVING:
		return "yes"
	case healthpb.HealthCheckResponse_NOT_SERVING:
		return "no"
	default:
		return "unknown"
	}
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
