//go:build windows

package webgpu

// workgroupSize is the number of invocations per workgroup (1D).
const workgroupSize = 256

// maxWorkgroupsPerDim is the WebGPU limit on workgroups along one dispatch axis.
const maxWorkgroupsPerDim = 65535

// paramsStruct is shared by all correlation shaders. Field order must match
// encodeParams.
const paramsStruct = `
struct Params {
    batch: i32,
    channels: i32,
    height: i32,
    width: i32,
    out_h: i32,
    out_w: i32,
    patch_h: i32,
    patch_w: i32,
    kernel_h: i32,
    kernel_w: i32,
    stride_h: i32,
    stride_w: i32,
    pad_h: i32,
    pad_w: i32,
    dil_h: i32,
    dil_w: i32,
    dpatch_h: i32,
    dpatch_w: i32,
    radius_h: i32,
    radius_w: i32,
    scale: f32,
    direction: i32,
    _pad0: i32,
    _pad1: i32,
}
@group(0) @binding(3) var<uniform> params: Params;

fn flat_index(gid: vec3<u32>, nwg: vec3<u32>) -> i32 {
    return i32(gid.x + gid.y * nwg.x * 256u);
}
`

// correlationForwardShader computes one volume cell per invocation.
// Volume layout: [batch, patch_h, patch_w, out_h, out_w].
const correlationForwardShader = `
@group(0) @binding(0) var<storage, read> input1: array<f32>;
@group(0) @binding(1) var<storage, read> input2: array<f32>;
@group(0) @binding(2) var<storage, read_write> output: array<f32>;
` + paramsStruct + `
@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>, @builtin(num_workgroups) nwg: vec3<u32>) {
    let idx = flat_index(gid, nwg);
    let total = params.batch * params.patch_h * params.patch_w * params.out_h * params.out_w;
    if (idx >= total) {
        return;
    }

    let j = idx % params.out_w;
    var rest = idx / params.out_w;
    let i = rest % params.out_h;
    rest = rest / params.out_h;
    let pw = rest % params.patch_w;
    rest = rest / params.patch_w;
    let ph = rest % params.patch_h;
    let b = rest / params.patch_h;

    let dy = ph * params.dpatch_h - params.radius_h;
    let dx = pw * params.dpatch_w - params.radius_w;
    let y0 = i * params.stride_h - params.pad_h;
    let x0 = j * params.stride_w - params.pad_w;
    let plane = params.height * params.width;
    let base = b * params.channels * plane;

    var sum: f32 = 0.0;
    for (var ki: i32 = 0; ki < params.kernel_h; ki = ki + 1) {
        let y1 = y0 + ki * params.dil_h;
        let y2 = y1 + dy;
        if (y1 < 0 || y1 >= params.height || y2 < 0 || y2 >= params.height) {
            continue;
        }
        for (var kj: i32 = 0; kj < params.kernel_w; kj = kj + 1) {
            let x1 = x0 + kj * params.dil_w;
            let x2 = x1 + dx;
            if (x1 < 0 || x1 >= params.width || x2 < 0 || x2 >= params.width) {
                continue;
            }
            var o1 = base + y1 * params.width + x1;
            var o2 = base + y2 * params.width + x2;
            for (var c: i32 = 0; c < params.channels; c = c + 1) {
                sum = sum + input1[o1] * input2[o2];
                o1 = o1 + plane;
                o2 = o2 + plane;
            }
        }
    }

    output[idx] = sum * params.scale;
}
`

// correlationBackwardShader gathers one input-gradient element per invocation.
// direction = 1: dst is grad_input1 and other is input2.
// direction = -1: dst is grad_input2 and other is input1.
const correlationBackwardShader = `
@group(0) @binding(0) var<storage, read> other: array<f32>;
@group(0) @binding(1) var<storage, read> grad: array<f32>;
@group(0) @binding(2) var<storage, read_write> dst: array<f32>;
` + paramsStruct + `
fn output_for(pos: i32, pad: i32, k: i32, dil: i32, stride: i32, out_size: i32) -> i32 {
    let t = pos + pad - k * dil;
    if (t < 0 || t % stride != 0) {
        return -1;
    }
    let o = t / stride;
    if (o >= out_size) {
        return -1;
    }
    return o;
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>, @builtin(num_workgroups) nwg: vec3<u32>) {
    let idx = flat_index(gid, nwg);
    let plane = params.height * params.width;
    let total = params.batch * params.channels * plane;
    if (idx >= total) {
        return;
    }

    let x = idx % params.width;
    var rest = idx / params.width;
    let y = rest % params.height;
    rest = rest / params.height;
    let c = rest % params.channels;
    let b = rest / params.channels;

    let base = (b * params.channels + c) * plane;
    let cells = params.out_h * params.out_w;
    let grad_base = b * params.patch_h * params.patch_w * cells;

    var sum: f32 = 0.0;
    for (var ph: i32 = 0; ph < params.patch_h; ph = ph + 1) {
        let dy = ph * params.dpatch_h - params.radius_h;
        var ty = y;
        var py = y + dy;
        if (params.direction < 0) {
            ty = y - dy;
            py = y - dy;
        }
        if (ty < 0 || ty >= params.height || py < 0 || py >= params.height) {
            continue;
        }
        for (var pw: i32 = 0; pw < params.patch_w; pw = pw + 1) {
            let dx = pw * params.dpatch_w - params.radius_w;
            var tx = x;
            var px = x + dx;
            if (params.direction < 0) {
                tx = x - dx;
                px = x - dx;
            }
            if (tx < 0 || tx >= params.width || px < 0 || px >= params.width) {
                continue;
            }
            let partner = other[base + py * params.width + px];
            let cell = grad_base + (ph * params.patch_w + pw) * cells;

            for (var ki: i32 = 0; ki < params.kernel_h; ki = ki + 1) {
                let i = output_for(ty, params.pad_h, ki, params.dil_h, params.stride_h, params.out_h);
                if (i < 0) {
                    continue;
                }
                for (var kj: i32 = 0; kj < params.kernel_w; kj = kj + 1) {
                    let j = output_for(tx, params.pad_w, kj, params.dil_w, params.stride_w, params.out_w);
                    if (j < 0) {
                        continue;
                    }
                    sum = sum + grad[cell + i * params.out_w + j] * partner;
                }
            }
        }
    }

    dst[idx] = sum * params.scale;
}
`
