/*
 * MIT License
 *
 * Copyright (c) 2026 The Hardware Analyzer Pro Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/devices"
)

var listDevicesCmd = &cobra.Command{
	Use:   "list-devices",
	Short: "List available disks, network interfaces, and GPUs",
	Long: `List all monitorable disk devices, network interfaces, and NVIDIA GPUs
on the system. This helps to configure include/exclude filters accurately.

Examples:
  # List all available devices
  hwpro list-devices

  # Use the output to configure filters
  hwpro monitor --include-disks="sda" --exclude-networks="lo"`,
	RunE: runListDevices,
}

func init() {
	rootCmd.AddCommand(listDevicesCmd)
}

func runListDevices(cmd *cobra.Command, args []string) error {
	fmt.Println("\n========================================")
	fmt.Println("   Hardware Analyzer Pro - Devices")
	fmt.Println("========================================")

	// List disk devices
	disks, err := devices.ListDisks(cmd.Context())
	switch {
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error listing disks: %v\n", err)
	case len(disks) == 0:
		fmt.Println("\nNo disk devices found.")
	default:
		fmt.Print(devices.FormatDisksTable(disks))
		fmt.Println("\nExample usage:")
		if len(disks) > 0 {
			fmt.Printf("  hwpro monitor --include-disks=\"%s\"\n", disks[0].Name)
		}
		if len(disks) > 1 {
			fmt.Printf("  hwpro monitor --exclude-disks=\"%s\"\n", disks[1].Name)
		}
	}

	// List network interfaces
	networks, err := devices.ListNetworkInterfaces(cmd.Context())
	switch {
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error listing network interfaces: %v\n", err)
	case len(networks) == 0:
		fmt.Println("\nNo network interfaces found.")
	default:
		fmt.Print(devices.FormatNetworksTable(networks))
		fmt.Println("\nExample usage:")
		if len(networks) > 0 {
			fmt.Printf("  hwpro monitor --include-networks=\"%s\"\n", networks[0].Name)
		}
		if len(networks) > 1 {
			fmt.Printf("  hwpro monitor --exclude-networks=\"%s\"\n", networks[1].Name)
		}
	}

	// List GPUs
	gpus, err := devices.ListGPUs(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing GPUs: %v\n", err)
	} else {
		fmt.Print(devices.FormatGPUsTable(gpus))
	}

	fmt.Println("\nNotes:")
	fmt.Println("  - Use comma to separate multiple devices: --exclude-disks=\"dev1,dev2\"")
	fmt.Println("  - Exclude filters take priority over include filters")
	fmt.Println("  - Empty include list means monitor all devices (except excluded)")
	fmt.Println()

	return nil
}
